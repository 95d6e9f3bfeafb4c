package funmapdal

import (
	"bytes"
	"context"
	"encoding/xml"
	"io"

	"github.com/hocman2/funmap/funmap"
	"github.com/jamesrr39/goutil/errorsx"
	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmxml"
)

// ParseMapData reads an OSM XML document.
// Nodes and ways are kept in document order, everything else is skipped.
// Ways can only reference nodes that appear before them in the document, other references are dropped
// and counted in MissingNodeRefs.
// A body that is not an <osm> document, such as an empty body or an HTML error page, is an error.
func ParseMapData(ctx context.Context, reader io.Reader, tagPool *funmap.TagPool) (*funmap.MapData, errorsx.Error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, errorsx.Wrap(err)
	}

	rootErr := checkOSMRoot(data)
	if rootErr != nil {
		return nil, rootErr
	}

	scanner := osmxml.New(ctx, bytes.NewReader(data))
	defer scanner.Close()

	mapData := funmap.NewMapData()
	for scanner.Scan() {
		switch obj := scanner.Object().(type) {
		case *osm.Node:
			node := funmap.NewNodeFromOSMNode(obj)
			mapData.Nodes[node.ID] = node
		case *osm.Way:
			way, missing := funmap.NewWayFromOSMWay(obj, mapData.Nodes, tagPool)
			mapData.Ways = append(mapData.Ways, way)
			mapData.MissingNodeRefs += missing
		}
	}

	err = scanner.Err()
	if err != nil {
		return nil, errorsx.Wrap(err)
	}

	return mapData, nil
}

// checkOSMRoot makes sure the first element of the document is <osm>.
// The scanner skips anything it does not know, so it would read garbage as an empty area.
func checkOSMRoot(data []byte) errorsx.Error {
	decoder := xml.NewDecoder(bytes.NewReader(data))
	for {
		token, err := decoder.Token()
		if err != nil {
			if err == io.EOF {
				return errorsx.Errorf("no osm element found in a body of %d bytes", len(data))
			}
			return errorsx.Wrap(err)
		}

		startElement, ok := token.(xml.StartElement)
		if !ok {
			continue
		}

		if startElement.Name.Local != "osm" {
			return errorsx.Errorf("expected an osm document, found <%s>", startElement.Name.Local)
		}
		return nil
	}
}
