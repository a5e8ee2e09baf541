/*
Package store provides bbolt-backed persistence for osmaug's mirror of the
OSM dataset.

It implements the Store component of the design: a single bbolt
environment holding ten named buckets (locations, nodes, ways, relations,
four reverse indexes, the spatial cell index, and metadata), with
transactional read/write access through typed views instead of raw
bucket Get/Put calls.

# Transactions

	Read:  env.Begin(false)  -> Txn, released with Abort (or Renew to
	       pick up a later commit without closing the surrounding pass)
	Write: env.Begin(true)   -> Txn, released with Commit or Abort

A read-only Txn never observes another transaction's uncommitted writes;
bbolt's MVCC snapshot gives this for free. There is no API to renew a
write transaction — the write pass always opens its own.

# Typed views

Each view is scoped to one bucket and obtained from a live Txn:

	txn.Locations()          -> node id -> Location
	txn.Elements("ways")     -> id -> opaque encoded record
	txn.Index("node_way")    -> (k1, k2) multi-value association
	txn.Metadata()           -> name -> value

Values returned by Elements.Get are copied out of the transaction's
memory-mapped page before being handed to the caller, since bbolt's own
byte slices are only valid for the transaction's lifetime.
*/
package store
