package registry

import "testing"

func TestForwardRelationships(t *testing.T) {
	reg := New()
	registerAll(t, reg,
		TypeDefinition{Name: "Category"},
		TypeDefinition{
			Name: "Product",
			Fields: []FieldDefinition{
				{Name: "title", Type: TypeText},
				{Name: "category", Type: TypeRelationship, Target: "Category", OnDelete: DeleteCascade},
			},
			Relationships: []RelationshipMetadata{
				{FieldName: "reviews", TargetType: "Review", Kind: "one_to_many"},
			},
		},
	)

	rels := reg.GetRelationships("Product")
	if len(rels) != 2 {
		t.Fatalf("expected 2 forward relationships, got %v", rels)
	}

	fk := rels[0]
	if fk.Kind != "foreign_key" || fk.TargetType != "Category" || fk.OnDelete != "cascade" {
		t.Errorf("unexpected foreign key metadata: %+v", fk)
	}
	if fk.SourceType != "Product" {
		t.Errorf("source should be the declaring type, got %s", fk.SourceType)
	}

	declared := rels[1]
	if declared.Kind != "one_to_many" || declared.TargetType != "Review" {
		t.Errorf("unexpected declared relationship: %+v", declared)
	}
}

func TestInverseRelationshipsAreDerived(t *testing.T) {
	reg := New()
	registerAll(t, reg,
		TypeDefinition{Name: "Category"},
		TypeDefinition{Name: "Product", Fields: []FieldDefinition{
			{Name: "category", Type: TypeRelationship, Target: "Category"},
		}},
		TypeDefinition{Name: "Listing", Fields: []FieldDefinition{
			{Name: "category", Type: TypeRelationship, Target: "category"}, // case-differing target
		}},
	)

	inverse := reg.GetInverseRelationships("Category")
	if len(inverse) != 2 {
		t.Fatalf("expected 2 inverse relationships, got %v", inverse)
	}
	sources := map[string]bool{}
	for _, rel := range inverse {
		sources[rel.SourceType] = true
	}
	if !sources["Product"] || !sources["Listing"] {
		t.Errorf("expected Product and Listing as sources, got %v", inverse)
	}

	// Derived views never land on the target's own forward list.
	if own := reg.GetRelationships("Category"); len(own) != 0 {
		t.Errorf("Category declares no forward relationships, got %v", own)
	}
}

func TestGetRelationshipMap(t *testing.T) {
	reg := New()
	registerAll(t, reg,
		TypeDefinition{Name: "Category"},
		TypeDefinition{Name: "Product", Fields: []FieldDefinition{
			{Name: "category", Type: TypeRelationship, Target: "Category"},
		}},
	)

	m := reg.GetRelationshipMap()
	if len(m) != 2 {
		t.Fatalf("expected entries for both types, got %v", m)
	}
	if len(m["Product"]) != 1 || len(m["Category"]) != 0 {
		t.Errorf("unexpected relationship map: %v", m)
	}

	// The map is a copy; mutating it must not leak into the registry.
	m["Product"][0].TargetType = "Mutated"
	if reg.GetRelationships("Product")[0].TargetType != "Category" {
		t.Error("relationship map should be a defensive copy")
	}
}

func TestCountDependents(t *testing.T) {
	reg := New()
	registerAll(t, reg,
		TypeDefinition{Name: "Category"},
		TypeDefinition{Name: "Product", Fields: []FieldDefinition{
			{Name: "category", Type: TypeRelationship, Target: "Category"},
		}},
	)

	if got := reg.CountDependents("Category"); got != 1 {
		t.Errorf("expected 1 dependent, got %d", got)
	}
	if got := reg.CountDependents("Product"); got != 0 {
		t.Errorf("expected 0 dependents, got %d", got)
	}
}
