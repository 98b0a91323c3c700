package repositories

import (
	"database/sql"
	"fmt"

	"github.com/lib/pq"
)

func checkRowsAffected(result sql.Result) (int64, error) {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check affected rows: %w", err)
	}
	return rowsAffected, nil
}

// toInt64Array конвертирует список идентификаторов для колонок integer[].
func toInt64Array(ids []int) pq.Int64Array {
	arr := make(pq.Int64Array, len(ids))
	for i, id := range ids {
		arr[i] = int64(id)
	}
	return arr
}

func fromInt64Array(arr pq.Int64Array) []int {
	ids := make([]int, len(arr))
	for i, v := range arr {
		ids[i] = int(v)
	}
	return ids
}
