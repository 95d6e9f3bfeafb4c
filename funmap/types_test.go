package funmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTagSet_Insert(t *testing.T) {
	ts := NewTagSet()

	assert.True(t, ts.Insert(Tag{Key: "building", Value: "yes"}))
	assert.False(t, ts.Insert(Tag{Key: "building", Value: "house"}))

	tag, ok := ts.Find("building")
	assert.True(t, ok)
	assert.Equal(t, "yes", tag.Value)
	assert.True(t, tag.Equal(Tag{Key: "building", Value: "no"}))
}

func TestWay_classification(t *testing.T) {
	tests := []struct {
		name         string
		tags         TagSet
		wantBuilding bool
		wantHighway  bool
	}{
		{"no tags", NewTagSet(), false, false},
		{"building yes", NewTagSet(Tag{"building", "yes"}), true, false},
		{"building with a type", NewTagSet(Tag{"building", "house"}), false, false},
		{"highway of any value", NewTagSet(Tag{"highway", "footway"}), false, true},
		{"highway with empty value", NewTagSet(Tag{"highway", ""}), false, true},
		{"duplicate building key keeps the first", NewTagSet(Tag{"building", "yes"}, Tag{"building", "no"}), true, false},
		{"duplicate building key, first is not yes", NewTagSet(Tag{"building", "no"}, Tag{"building", "yes"}), false, false},
		{"building and highway", NewTagSet(Tag{"building", "yes"}, Tag{"highway", "service"}), true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			way := &Way{ID: 1, Tags: tt.tags}
			assert.Equal(t, tt.wantBuilding, way.IsBuilding())
			assert.Equal(t, tt.wantHighway, way.IsHighway())
		})
	}
}

func TestWay_IsClosed(t *testing.T) {
	assert.False(t, (&Way{}).IsClosed())
	assert.False(t, (&Way{Nodes: []Node{{ID: 1}}}).IsClosed())
	assert.False(t, (&Way{Nodes: []Node{{ID: 1}, {ID: 2}, {ID: 3}}}).IsClosed())
	assert.True(t, (&Way{Nodes: []Node{{ID: 1}, {ID: 2}, {ID: 3}, {ID: 1}}}).IsClosed())
}

func TestMapData_partition(t *testing.T) {
	md := NewMapData()
	md.Ways = []*Way{
		{ID: 1, Tags: NewTagSet(Tag{"building", "yes"})},
		{ID: 2, Tags: NewTagSet(Tag{"highway", "primary"})},
		{ID: 3, Tags: NewTagSet(Tag{"natural", "water"})},
		{ID: 4, Tags: NewTagSet(Tag{"building", "yes"})},
	}

	buildings := md.Buildings()
	highways := md.Highways()

	assert.Len(t, buildings, 2)
	assert.Equal(t, uint64(1), buildings[0].ID)
	assert.Equal(t, uint64(4), buildings[1].ID)
	assert.Len(t, highways, 1)
	assert.Equal(t, uint64(2), highways[0].ID)
}
