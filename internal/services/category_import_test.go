package services

import (
	"strconv"
	"testing"

	"bazario/internal/sourceclient"
)

func TestFlattenCategoriesOrdersParentsFirst(t *testing.T) {
	roots := []sourceclient.RemoteCategory{
		{
			ID:   sourceclient.FlexString("1"),
			Name: "Home",
			Children: []sourceclient.RemoteCategory{
				{ID: sourceclient.FlexString("2"), Name: "Kitchen", Children: []sourceclient.RemoteCategory{
					{ID: sourceclient.FlexString("3"), Name: "Cookware"},
				}},
			},
		},
		{ID: sourceclient.FlexString("4"), Name: "Garden"},
	}

	flat := flattenCategories(roots)
	if len(flat) != 4 {
		t.Fatalf("got %d records, expected 4", len(flat))
	}

	position := make(map[string]int)
	for i, rec := range flat {
		position[rec.ExternalID] = i
	}
	if position["1"] > position["2"] || position["2"] > position["3"] {
		t.Errorf("children before parents: %v", flat)
	}
	if flat[position["2"]].ParentExternalID != "1" {
		t.Errorf("Kitchen parent = %q, expected %q", flat[position["2"]].ParentExternalID, "1")
	}
	if flat[position["1"]].ParentExternalID != "" {
		t.Errorf("root parent = %q, expected empty", flat[position["1"]].ParentExternalID)
	}
}

func TestFlattenCategoriesDeduplicatesRepeatedIDs(t *testing.T) {
	shared := sourceclient.RemoteCategory{ID: sourceclient.FlexString("9"), Name: "Accessories"}
	roots := []sourceclient.RemoteCategory{
		{ID: sourceclient.FlexString("1"), Name: "Phones", Children: []sourceclient.RemoteCategory{shared}},
		{ID: sourceclient.FlexString("2"), Name: "Laptops", Children: []sourceclient.RemoteCategory{shared}},
	}

	flat := flattenCategories(roots)
	count := 0
	for _, rec := range flat {
		if rec.ExternalID == "9" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("shared category appeared %d times, expected once", count)
	}
}

func TestFlattenCategoriesDeduplicatesByNameWithoutID(t *testing.T) {
	roots := []sourceclient.RemoteCategory{
		{Name: "Clearance"},
		{Name: " clearance "},
	}

	flat := flattenCategories(roots)
	if len(flat) != 1 {
		t.Fatalf("got %d records, expected name-keyed dedupe to keep 1", len(flat))
	}
	if flat[0].Name != "Clearance" {
		t.Errorf("name = %q, expected trimmed original", flat[0].Name)
	}
}

func TestFlattenCategoriesBoundsDepth(t *testing.T) {
	// build a chain deeper than the traversal bound
	leaf := sourceclient.RemoteCategory{ID: sourceclient.FlexString("leaf"), Name: "Leaf"}
	node := leaf
	for i := maxCategoryDepth + 5; i > 0; i-- {
		node = sourceclient.RemoteCategory{
			ID:       sourceclient.FlexString("n" + strconv.Itoa(i)),
			Name:     "Node",
			Children: []sourceclient.RemoteCategory{node},
		}
	}

	flat := flattenCategories([]sourceclient.RemoteCategory{node})
	if len(flat) > maxCategoryDepth {
		t.Errorf("flattened %d records, expected traversal capped at %d", len(flat), maxCategoryDepth)
	}
	for _, rec := range flat {
		if rec.ExternalID == "leaf" {
			t.Error("leaf beyond the depth bound should not be visited")
		}
	}
}
