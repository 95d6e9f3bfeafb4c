package funmap

type Node struct {
	ID        uint64
	Longitude float64
	Latitude  float64
	Visible   bool
}

// Tag is a key/value pair. Two tags are equal when their keys are equal, the value is only inspected after a lookup.
type Tag struct {
	Key   string
	Value string
}

func (t Tag) Equal(other Tag) bool {
	return t.Key == other.Key
}

// TagSet holds at most one tag per key. The first tag inserted for a key wins.
type TagSet map[string]Tag

func NewTagSet(tags ...Tag) TagSet {
	ts := make(TagSet, len(tags))
	for _, tag := range tags {
		ts.Insert(tag)
	}
	return ts
}

// Insert adds the tag if no tag with the same key is present. Returns false if the key was already taken.
func (ts TagSet) Insert(tag Tag) bool {
	if _, ok := ts[tag.Key]; ok {
		return false
	}
	ts[tag.Key] = tag
	return true
}

func (ts TagSet) Find(key string) (Tag, bool) {
	tag, ok := ts[key]
	return tag, ok
}

func (ts TagSet) Has(key string) bool {
	_, ok := ts[key]
	return ok
}

const (
	TagKeyBuilding = "building"
	TagKeyHighway  = "highway"
)

type Way struct {
	ID uint64
	// Nodes are copies, so the way can outlive the MapData it was parsed into.
	// Closed polygons repeat the first node at the end.
	Nodes []Node
	Tags  TagSet
}

func (w *Way) IsBuilding() bool {
	tag, ok := w.Tags.Find(TagKeyBuilding)
	if !ok {
		return false
	}
	return tag.Value == "yes"
}

func (w *Way) IsHighway() bool {
	return w.Tags.Has(TagKeyHighway)
}

func (w *Way) IsClosed() bool {
	if len(w.Nodes) < 2 {
		return false
	}
	return w.Nodes[0].ID == w.Nodes[len(w.Nodes)-1].ID
}

type MapData struct {
	Nodes map[uint64]Node
	Ways  []*Way
	// MissingNodeRefs counts way node references that pointed to nodes absent from the document
	MissingNodeRefs int
}

func NewMapData() *MapData {
	return &MapData{
		Nodes: make(map[uint64]Node),
	}
}

func (md *MapData) Buildings() []*Way {
	var buildings []*Way
	for _, way := range md.Ways {
		if way.IsBuilding() {
			buildings = append(buildings, way)
		}
	}
	return buildings
}

func (md *MapData) Highways() []*Way {
	var highways []*Way
	for _, way := range md.Ways {
		if way.IsHighway() {
			highways = append(highways, way)
		}
	}
	return highways
}
