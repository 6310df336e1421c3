// SPDX-FileCopyrightText: (C) 2024 Intel Corporation
// SPDX-License-Identifier: Apache 2.0

package seam

import (
	"fmt"
	"reflect"
	"slices"
	"strings"
)

type structField struct {
	key       string
	index     []int
	omittable bool
}

// structFields returns the encodable fields of a struct type in declaration
// order, which is also their wire order. Field keys default to the Go field
// name and may be renamed with a `seam:"name"` tag. Fields tagged `seam:"-"`
// are skipped, as are unexported fields. Anonymous embedded structs (and
// pointers to them) without a name tag are flattened into the parent's field
// list.
func structFields(t reflect.Type) ([]structField, error) {
	fields := collectFields(nil, 0, t.NumField(), t.Field, nil)

	// Field keys are map keys on the wire, so they must be unique.
	seen := make(map[string][]int, len(fields))
	for _, f := range fields {
		if prev, ok := seen[f.key]; ok {
			return nil, fmt.Errorf("%s: duplicate field key %q at %v and %v",
				t.String(), f.key, prev, f.index)
		}
		seen[f.key] = f.index
	}
	return fields, nil
}

func collectFields(parents []int, i, upper int, field func(int) reflect.StructField, fields []structField) []structField {
	if i >= upper {
		return fields
	}
	f := field(i)

	// Skip private fields
	if !f.IsExported() {
		return collectFields(parents, i+1, upper, field, fields)
	}

	// Extract seam tag value before the first comma separator (if any)
	tag := f.Tag.Get("seam")
	name, options, _ := strings.Cut(tag, ",")

	// Skip item if it has the tag `seam:"-"`
	if name == "-" {
		return collectFields(parents, i+1, upper, field, fields)
	}

	// Check if omittable
	omittable := false
	for _, option := range strings.Split(options, ",") {
		switch option {
		case "omitempty":
			omittable = true
		}
	}

	// Duplicate parents slice, because it might be appended to
	parents = slices.Clone(parents)

	// Flatten embedded fields, unless renamed by tag
	if f.Anonymous && name == "" {
		switch {
		case f.Type.Kind() == reflect.Struct:
			nested := collectFields(append(parents, i), 0, f.Type.NumField(), f.Type.Field, nil)
			return collectFields(parents, i+1, upper, field, append(fields, nested...))
		case f.Type.Kind() == reflect.Pointer && f.Type.Elem().Kind() == reflect.Struct:
			nested := collectFields(append(parents, i), 0, f.Type.Elem().NumField(), f.Type.Elem().Field, nil)
			return collectFields(parents, i+1, upper, field, append(fields, nested...))
		}
	}

	if name == "" {
		name = f.Name
	}

	// Append to field list
	return collectFields(parents, i+1, upper, field, append(fields, structField{
		key:       name,
		index:     append(parents, i),
		omittable: omittable,
	}))
}
