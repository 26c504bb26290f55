package postgres

import (
	"reflect"
	"sync"
)

// Row structs in this package map to tables through "db" tags.
// ExtractDBColumns and StructToMap read those tags so column lists and
// insert maps stay in lockstep with the struct definitions. Embedded
// structs (ledger.AuditInfo, domain entities inside row wrappers) are
// flattened; fields tagged `db:"-"` or untagged are skipped.

// tagMeta is the cached per-type view of the db tags.
type tagMeta struct {
	cols     []string // tag values in declaration order, embedded flattened
	fields   []int    // field index per tagged field
	tags     []string // tag value per tagged field, parallel to fields
	embedded []int    // field indices of anonymous structs
}

var tagMetaCache sync.Map // reflect.Type -> *tagMeta

func metaFor(t reflect.Type) *tagMeta {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if cached, ok := tagMetaCache.Load(t); ok {
		return cached.(*tagMeta)
	}

	meta := &tagMeta{}
	if t.Kind() == reflect.Struct {
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if f.Anonymous {
				meta.embedded = append(meta.embedded, i)
				meta.cols = append(meta.cols, metaFor(f.Type).cols...)
				continue
			}
			tag := f.Tag.Get("db")
			if tag == "" || tag == "-" {
				continue
			}
			meta.fields = append(meta.fields, i)
			meta.tags = append(meta.tags, tag)
			meta.cols = append(meta.cols, tag)
		}
	}

	tagMetaCache.Store(t, meta)
	return meta
}

// ExtractDBColumns returns the column names declared by T's db tags.
func ExtractDBColumns[T any]() []string {
	var zero T
	return metaFor(reflect.TypeOf(zero)).cols
}

// StructToMap converts a struct to a column->value map using db tags.
// Reflection metadata is computed once per type and cached.
func StructToMap(v any) map[string]any {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil
	}

	res := make(map[string]any, len(metaFor(rv.Type()).cols))
	collectColumns(rv, res)
	return res
}

// collectColumns recurses on reflect.Value, never on an interface:
// an embedded struct value obtained from an unexported field cannot be
// passed through Interface(), but its exported fields remain readable.
func collectColumns(rv reflect.Value, res map[string]any) {
	if rv.Kind() == reflect.Ptr {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return
	}

	meta := metaFor(rv.Type())
	for i, fi := range meta.fields {
		res[meta.tags[i]] = rv.Field(fi).Interface()
	}
	for _, ei := range meta.embedded {
		collectColumns(rv.Field(ei), res)
	}
}
