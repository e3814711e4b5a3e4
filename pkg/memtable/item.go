package memtable

import "lsmdb/pkg/value"

// Item is one memtable entry: an internal key (user key + version suffix,
// pkg/key) paired with its decoded value record.
type Item struct {
	Key   []byte
	Value value.Value
}

func (it Item) Less(than Item) bool {
	return keyLess(it.Key, than.Key)
}
