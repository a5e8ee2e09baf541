// See codec.go for the wire layout. This package has no dependency on
// pkg/store; it only turns types.Node/Way/Relation into bytes and back.
package codec
