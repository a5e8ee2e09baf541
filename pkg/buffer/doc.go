// Node, Way, and Relation all return a pointer into the Arena's backing
// slice. That pointer is only safe to use before the next Append call of
// the same kind, since Append may reallocate; callers that need a value
// to survive further appends must copy it out immediately.
package buffer
