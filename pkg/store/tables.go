package store

// Bucket names for osmaug's bbolt database. Each is a separately named
// ordered sub-map inside one environment (spec §3).
//
// locations     node id (u64 BE)                  -> Location (12 bytes)
// nodes         node id (u64 BE)                   -> codec.Node (absent when node has no tags)
// ways          way id (u64 BE)                    -> codec.Way
// relations     relation id (u64 BE)               -> codec.Relation
// cellNode      cell id (u64 BE) + node id (u64 BE) -> empty; multi-value, all nodes in a spatial cell
// nodeWay       node id (u64 BE) + way id (u64 BE)  -> empty; reverse index
// nodeRelation  node id (u64 BE) + relation id (u64 BE) -> empty; reverse index
// wayRelation   way id (u64 BE) + relation id (u64 BE)  -> empty; reverse index
// relRelation   child relation id (u64 BE) + parent relation id (u64 BE) -> empty; reverse index
// metadata      utf-8 name                          -> utf-8 value
var (
	bucketLocations    = []byte("locations")
	bucketNodes        = []byte("nodes")
	bucketWays         = []byte("ways")
	bucketRelations    = []byte("relations")
	bucketCellNode     = []byte("cell_node")
	bucketNodeWay      = []byte("node_way")
	bucketNodeRelation = []byte("node_relation")
	bucketWayRelation  = []byte("way_relation")
	bucketRelRelation  = []byte("relation_relation")
	bucketMetadata     = []byte("metadata")
)

var allBuckets = [][]byte{
	bucketLocations,
	bucketNodes,
	bucketWays,
	bucketRelations,
	bucketCellNode,
	bucketNodeWay,
	bucketNodeRelation,
	bucketWayRelation,
	bucketRelRelation,
	bucketMetadata,
}

// Metadata keys (spec §3, §6).
const (
	MetaSequenceNumber = "osmosis_replication_sequence_number"
	MetaTimestamp      = "osmosis_replication_timestamp"
)

// Table name constants for Txn.Elements and Txn.Index. Exported so callers
// outside this package don't hand-roll bucket name strings.
const (
	TableNodes        = "nodes"
	TableWays         = "ways"
	TableRelations    = "relations"
	IndexCellNode     = "cell_node"
	IndexNodeWay      = "node_way"
	IndexNodeRelation = "node_relation"
	IndexWayRelation  = "way_relation"
	IndexRelRelation  = "relation_relation"
)
