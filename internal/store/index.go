package store

import (
	"strconv"

	"github.com/starford/notifsync/internal/models"
)

// recordIndex maps ids to commitments and remembers insertion order.
// It is not safe for concurrent use; Store guards it.
type recordIndex struct {
	order []string
	byID  map[string]models.Commitment
}

func newRecordIndex() *recordIndex {
	return &recordIndex{byID: make(map[string]models.Commitment)}
}

func (x *recordIndex) len() int {
	return len(x.order)
}

func (x *recordIndex) has(id string) bool {
	_, ok := x.byID[id]
	return ok
}

func (x *recordIndex) get(id string) (models.Commitment, bool) {
	c, ok := x.byID[id]
	if !ok {
		return models.Commitment{}, false
	}
	return c.Clone(), true
}

// put inserts c at the end, or replaces an existing entry in place.
func (x *recordIndex) put(c models.Commitment) (replaced bool) {
	if _, ok := x.byID[c.ID]; !ok {
		x.order = append(x.order, c.ID)
	} else {
		replaced = true
	}
	x.byID[c.ID] = c.Clone()
	return replaced
}

func (x *recordIndex) remove(id string) {
	if _, ok := x.byID[id]; !ok {
		return
	}
	delete(x.byID, id)
	for i, v := range x.order {
		if v == id {
			x.order = append(x.order[:i:i], x.order[i+1:]...)
			break
		}
	}
}

// list returns copies of all entries in insertion order.
func (x *recordIndex) list() []models.Commitment {
	out := make([]models.Commitment, 0, len(x.order))
	for _, id := range x.order {
		out = append(out, x.byID[id].Clone())
	}
	return out
}

// filter returns a new index holding the entries for which keep is true,
// and how many were dropped.
func (x *recordIndex) filter(keep func(models.Commitment) bool) (*recordIndex, int) {
	next := newRecordIndex()
	dropped := 0
	for _, id := range x.order {
		c := x.byID[id]
		if !keep(c) {
			dropped++
			continue
		}
		next.order = append(next.order, id)
		next.byID[id] = c
	}
	return next, dropped
}

// maxNumericID returns the largest id that is a plain decimal integer,
// or 0 if there is none.
func (x *recordIndex) maxNumericID() uint64 {
	return maxNumericID(x.order)
}

func maxNumericID(ids []string) uint64 {
	var highest uint64
	for _, id := range ids {
		if n, err := strconv.ParseUint(id, 10, 64); err == nil && n > highest {
			highest = n
		}
	}
	return highest
}
