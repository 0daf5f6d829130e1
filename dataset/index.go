package dataset

import (
	"github.com/alphadose/haxmap"
)

// Index maps every hierarchy value to the positions of the rows carrying it.
// Row lists are ascending, so walking them preserves dataset order.
type Index struct {
	rows   [len(levelNames)]*haxmap.Map[string, []int]
	values [len(levelNames)][]string // distinct values in first-seen order
}

var levelNames = [...]string{ColProvince, ColDistrict, ColSubDistrict, ColHappyBlock}

// BuildIndex scans the records once. The result is read-only.
func BuildIndex(records []Record) *Index {
	idx := &Index{}
	for _, l := range Levels {
		positions := make(map[string][]int)
		var order []string
		for i := range records {
			v := records[i].Field(l)
			if _, seen := positions[v]; !seen {
				order = append(order, v)
			}
			positions[v] = append(positions[v], i)
		}

		m := haxmap.New[string, []int](uintptr(len(order) + 1))
		for _, v := range order {
			m.Set(v, positions[v])
		}
		idx.rows[l] = m
		idx.values[l] = order
	}
	return idx
}

// Rows returns the positions of the rows whose level equals value.
func (idx *Index) Rows(l Level, value string) []int {
	if int(l) >= len(idx.rows) || idx.rows[l] == nil {
		return nil
	}
	rows, _ := idx.rows[l].Get(value)
	return rows
}

// Values returns the distinct values of a level in first-seen order.
func (idx *Index) Values(l Level) []string {
	if int(l) >= len(idx.values) {
		return nil
	}
	out := make([]string, len(idx.values[l]))
	copy(out, idx.values[l])
	return out
}

// Count returns how many distinct values a level has.
func (idx *Index) Count(l Level) int {
	if int(l) >= len(idx.rows) || idx.rows[l] == nil {
		return 0
	}
	return int(idx.rows[l].Len())
}
