package source

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/paulmach/orb"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/floodwatch/routing/router"
)

// networkDoc is one mongodb document of a network collection. Nodes and
// edges share the collection, discriminated by class.
type networkDoc struct {
	Class string   `bson:"class"`
	Node  *nodeDoc `bson:"node,omitempty"`
	Edge  *edgeDoc `bson:"edge,omitempty"`
}

type nodeDoc struct {
	ID  int64   `bson:"id"`
	Lat float64 `bson:"lat"`
	Lon float64 `bson:"lon"`
}

type edgeDoc struct {
	From        int64       `bson:"from"`
	To          int64       `bson:"to"`
	LengthM     float64     `bson:"length_m,omitempty"`
	MaxSpeedKPH float64     `bson:"maxspeed_kph,omitempty"`
	Geometry    [][]float64 `bson:"geometry,omitempty"` // [lon, lat] pairs
}

// LoadNetwork reads a road network description from a local JSON file or a
// mongodb collection, depending on how the path resolved.
func LoadNetwork(ctx context.Context, mongoURI string, path *Path) (*router.RoadNetwork, error) {
	if path == nil {
		return nil, fmt.Errorf("%w: no network path given", router.ErrMalformedGraph)
	}
	if path.File != "" {
		return loadNetworkFile(path.File)
	}
	return loadNetworkMongo(ctx, mongoURI, path)
}

func loadNetworkFile(file string) (*router.RoadNetwork, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("read network file %s: %w", file, err)
	}
	var network router.RoadNetwork
	if err := json.Unmarshal(data, &network); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", router.ErrMalformedGraph, file, err)
	}
	log.Infof("loaded network from %s: %d nodes, %d edges", file, len(network.Nodes), len(network.Edges))
	return &network, nil
}

func loadNetworkMongo(ctx context.Context, mongoURI string, path *Path) (*router.RoadNetwork, error) {
	if mongoURI == "" {
		return nil, fmt.Errorf("network path %s.%s requires a mongo URI", path.GetDb(), path.GetColl())
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}
	defer client.Disconnect(context.Background())

	coll := client.Database(path.GetDb()).Collection(path.GetColl())
	cursor, err := coll.Find(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("query %s.%s: %w", path.GetDb(), path.GetColl(), err)
	}
	defer cursor.Close(ctx)

	network := &router.RoadNetwork{}
	for cursor.Next(ctx) {
		var doc networkDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("%w: decode document: %v", router.ErrMalformedGraph, err)
		}
		switch doc.Class {
		case "node":
			if doc.Node == nil {
				return nil, fmt.Errorf("%w: node document without node body", router.ErrMalformedGraph)
			}
			network.Nodes = append(network.Nodes, router.NetworkNode{
				ID: doc.Node.ID, Lat: doc.Node.Lat, Lon: doc.Node.Lon,
			})
		case "edge":
			if doc.Edge == nil {
				return nil, fmt.Errorf("%w: edge document without edge body", router.ErrMalformedGraph)
			}
			network.Edges = append(network.Edges, router.NetworkEdge{
				From:        doc.Edge.From,
				To:          doc.Edge.To,
				LengthM:     doc.Edge.LengthM,
				MaxSpeedKPH: doc.Edge.MaxSpeedKPH,
				Geometry:    toLineString(doc.Edge.Geometry),
			})
		default:
			log.Warnf("skipping document with unknown class %q", doc.Class)
		}
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s.%s: %w", path.GetDb(), path.GetColl(), err)
	}
	log.Infof("loaded network from %s.%s: %d nodes, %d edges",
		path.GetDb(), path.GetColl(), len(network.Nodes), len(network.Edges))
	return network, nil
}

func toLineString(coords [][]float64) orb.LineString {
	if len(coords) == 0 {
		return nil
	}
	ls := make(orb.LineString, 0, len(coords))
	for _, c := range coords {
		if len(c) < 2 {
			continue
		}
		ls = append(ls, orb.Point{c[0], c[1]})
	}
	return ls
}
