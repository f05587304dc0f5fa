package query_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lightblue-platform/lightblue_sdk_go/pkg/query"
)

func compact(t *testing.T, v any) string {
	t.Helper()
	text, err := query.Compact(v)
	require.NoError(t, err)
	return text
}

func TestComparisons(t *testing.T) {
	assert.Equal(t, `{"field":"iso2Code","op":"=","rvalue":"CA"}`, compact(t, query.Field("iso2Code").Eq("CA")))
	assert.Equal(t, `{"field":"age","op":">=","rvalue":18}`, compact(t, query.Field("age").Gte(18)))
	assert.Equal(t, `{"field":"age","op":"<","rvalue":65}`, compact(t, query.Field("age").Lt(65)))
	assert.Equal(t, `{"field":"name","op":"!=","rvalue":null}`, compact(t, query.Field("name").Ne(nil)))
	assert.Equal(t, `{"field":"name","regex":"^Can"}`, compact(t, query.Field("name").Regex("^Can")))
	assert.Equal(t, `{"field":"iso2Code","op":"$in","values":["CA","US"]}`, compact(t, query.Field("iso2Code").In("CA", "US")))
	assert.Equal(t, `{"field":"iso2Code","op":"$in","values":[]}`, compact(t, query.Field("iso2Code").In()))
}

func TestLogical(t *testing.T) {
	q := query.And(
		query.Field("a").Eq(1),
		query.Not(query.Or(query.Field("b").Eq(2))),
	)
	assert.Equal(t,
		`{"$and":[{"field":"a","op":"=","rvalue":1},{"$not":{"$or":[{"field":"b","op":"=","rvalue":2}]}}]}`,
		compact(t, q))
	assert.Equal(t, `{"$or":[]}`, compact(t, query.Or()))
}

func TestProjectionSortUpdate(t *testing.T) {
	assert.Equal(t, `{"field":"*","include":true,"recursive":true}`, compact(t, query.IncludeAll()))
	assert.Equal(t, `{"field":"secret","include":false,"recursive":false}`, compact(t, query.Exclude("secret", false)))
	assert.Equal(t, `[{"name":"$asc"},{"age":"$desc"}]`, compact(t, []query.Sort{query.Asc("name"), query.Desc("age")}))
	assert.Equal(t, `{"$set":{"name":"Canada"}}`, compact(t, query.Set("name", "Canada")))
	assert.Equal(t, `{"$unset":"optionalField"}`, compact(t, query.Unset("optionalField")))
	assert.Equal(t, `{"$add":{"visits":1}}`, compact(t, query.Add("visits", 1)))
}
