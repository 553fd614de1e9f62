package template

// Combine merges templates into one. The last fragment of each item is
// joined with the first fragment of the next; values are concatenated in
// order.
//
// Zero items yield OfString(""). One item is returned unchanged.
// Returns NULL_REFERENCE if any item is nil and INVALID_ARGUMENT if the
// result would exceed MaxSlots values.
func Combine(items ...*Template) (*Template, error) {
	switch len(items) {
	case 0:
		return OfString(""), nil
	case 1:
		if items[0] == nil {
			return nil, NewNullReference("Combine", "template")
		}
		return items[0], nil
	}

	size := 0
	for _, t := range items {
		if t == nil {
			return nil, NewNullReference("Combine", "template")
		}
		size += len(t.values)
	}
	if size > MaxSlots {
		return nil, NewInvalidArgument("Combine", "too many embedded values (%d > %d)", size, MaxSlots)
	}

	fragments := make([]string, 1, size+1)
	values := make([]any, 0, size)
	for _, t := range items {
		fragments[len(fragments)-1] += t.fragments[0]
		fragments = append(fragments, t.fragments[1:]...)
		values = append(values, t.values...)
	}
	return newTrusted(fragments, values), nil
}

// CombineList is Combine over a slice. Returns NULL_REFERENCE for a nil slice.
func CombineList(items []*Template) (*Template, error) {
	if items == nil {
		return nil, NewNullReference("CombineList", "templates")
	}
	return Combine(items...)
}

// CombineFlatten flattens each item before combining, so the result embeds
// no templates.
func CombineFlatten(items ...*Template) (*Template, error) {
	flat := make([]*Template, len(items))
	for i, t := range items {
		if t == nil {
			return nil, NewNullReference("CombineFlatten", "template")
		}
		f, err := Flatten(t)
		if err != nil {
			return nil, err
		}
		flat[i] = f
	}
	return Combine(flat...)
}

// Flatten splices every value that is itself a template into the
// surrounding fragments, recursively. The interpolation is unchanged.
// Templates without nested templates are returned as-is.
func Flatten(t *Template) (*Template, error) {
	if t == nil {
		return nil, NewNullReference("Flatten", "template")
	}
	if !hasNested(t) {
		return t, nil
	}

	fragments := []string{t.fragments[0]}
	values := make([]any, 0, len(t.values))
	for i, v := range t.values {
		nested, ok := v.(*Template)
		if !ok || nested == nil {
			values = append(values, v)
			fragments = append(fragments, t.fragments[i+1])
			continue
		}
		inner, err := Flatten(nested)
		if err != nil {
			return nil, err
		}
		fragments[len(fragments)-1] += inner.fragments[0]
		fragments = append(fragments, inner.fragments[1:]...)
		values = append(values, inner.values...)
		fragments[len(fragments)-1] += t.fragments[i+1]
	}
	if len(values) > MaxSlots {
		return nil, NewInvalidArgument("Flatten", "too many embedded values (%d > %d)", len(values), MaxSlots)
	}
	return newTrusted(fragments, values), nil
}

func hasNested(t *Template) bool {
	for _, v := range t.values {
		if nested, ok := v.(*Template); ok && nested != nil {
			return true
		}
	}
	return false
}
