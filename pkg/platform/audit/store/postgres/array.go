package postgres

import (
	"github.com/google/uuid"
	"github.com/lib/pq"
)

func uuidArray(ids []uuid.UUID) any {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return pq.Array(out)
}
