package records

// Prepend returns a new collection with item first.
func Prepend(item Item, items []Item) []Item {
	out := make([]Item, 0, len(items)+1)
	out = append(out, item)
	return append(out, items...)
}

// Find returns the record with the given id.
func Find(id string, items []Item) (Item, bool) {
	for _, it := range items {
		if it.ID == id {
			return it, true
		}
	}
	return Item{}, false
}

// Clone returns a copy of the collection.
func Clone(items []Item) []Item {
	if items == nil {
		return nil
	}
	return append([]Item(nil), items...)
}
