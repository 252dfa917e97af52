package storage

import "github.com/jackc/pgx/v4"

type postTagRow struct {
	postID, tagID int64
}

type postTagBulk struct {
	rows []postTagRow
	idx  int
}

func copyFromPostTags(rows []postTagRow) pgx.CopyFromSource {
	return &postTagBulk{
		rows: rows,
		idx:  -1,
	}
}

func (b *postTagBulk) Next() bool {
	b.idx++
	return b.idx < len(b.rows)
}

func (b *postTagBulk) Values() ([]interface{}, error) {
	return []interface{}{b.rows[b.idx].postID, b.rows[b.idx].tagID}, nil
}

func (b *postTagBulk) Err() error {
	return nil
}
