package postgres

import "github.com/secmon-lab/autocrm/pkg/domain/model"

// KnowledgeQueriesForTest returns the SELECT query and the schema DDL built for table
func KnowledgeQueriesForTest(table string) (string, string) {
	r := &knowledgeRepository{table: table}
	query, _, err := psql().Select(knowledgeColumns...).From(r.quotedTable()).ToSql()
	if err != nil {
		panic(err)
	}
	return query, r.schema()
}

// ToColumnsForTest exposes how an embedding is split into the vector and raw columns
func ToColumnsForTest(raw model.RawEmbedding) (any, any) {
	return toColumns(raw)
}
