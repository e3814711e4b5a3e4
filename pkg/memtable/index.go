package memtable

import (
	"github.com/zhangyunhao116/skipmap"

	"lsmdb/pkg/key"
)

// keyLess orders internal keys the same way pkg/key.Compare does; skipmap
// keys by string since its generic map needs a Go-comparable key type, so
// the []byte internal key is converted at the boundary.
func keyLess(a, b []byte) bool { return key.Compare(a, b) < 0 }

func stringLess(a, b string) bool { return keyLess([]byte(a), []byte(b)) }

// newIndex builds the concurrent ordered map backing one memtable: a
// lock-free skip list ordered by internal-key comparison instead of plain
// byte comparison.
func newIndex() *skipmap.FuncMap[string, *Item] {
	return skipmap.NewFunc[string, *Item](stringLess)
}
