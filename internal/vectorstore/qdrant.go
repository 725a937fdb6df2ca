package vectorstore

import (
	"context"
	"fmt"
	"log/slog"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Qdrant stores chunks in a Qdrant collection over gRPC.
//
// Qdrant is safe for concurrent use.
type Qdrant struct {
	conn        *grpc.ClientConn
	points      pb.PointsClient
	collections pb.CollectionsClient
	collection  string
	logger      *slog.Logger
}

// NewQdrant connects to Qdrant at the given gRPC address.
func NewQdrant(addr, collection string, logger *slog.Logger) (*Qdrant, error) {
	if logger == nil {
		logger = slog.Default()
	}
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dialing qdrant %s: %w", addr, err)
	}
	return &Qdrant{
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
		collection:  collection,
		logger:      logger,
	}, nil
}

// EnsureCollection creates the collection with cosine distance if it does
// not already exist.
func (q *Qdrant) EnsureCollection(ctx context.Context, dims int) error {
	list, err := q.collections.List(ctx, &pb.ListCollectionsRequest{})
	if err != nil {
		return fmt.Errorf("listing collections: %w", err)
	}
	for _, c := range list.GetCollections() {
		if c.GetName() == q.collection {
			return nil
		}
	}

	_, err = q.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: q.collection,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     uint64(dims),
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("creating collection %s: %w", q.collection, err)
	}
	q.logger.Info("created qdrant collection", "collection", q.collection, "dims", dims)
	return nil
}

// Upsert implements Store. Record IDs must be UUIDs, which Qdrant
// requires for string point IDs.
func (q *Qdrant) Upsert(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}

	points := make([]*pb.PointStruct, len(records))
	for i, r := range records {
		points[i] = &pb.PointStruct{
			Id: &pb.PointId{
				PointIdOptions: &pb.PointId_Uuid{Uuid: r.ID},
			},
			Vectors: &pb.Vectors{
				VectorsOptions: &pb.Vectors_Vector{
					Vector: &pb.Vector{Data: r.Embedding},
				},
			},
			Payload: map[string]*pb.Value{
				"content":     stringValue(r.Content),
				"file_id":     stringValue(r.Metadata.FileID),
				"class_code":  stringValue(r.Metadata.ClassCode),
				"category":    stringValue(r.Metadata.Category),
				"subcategory": stringValue(r.Metadata.Subcategory),
				"chunk_index": {Kind: &pb.Value_IntegerValue{IntegerValue: int64(r.Metadata.ChunkIndex)}},
			},
		}
	}

	wait := true
	_, err := q.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: q.collection,
		Wait:           &wait,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("upserting %d points: %w", len(points), err)
	}

	q.logger.Debug("upserted chunks", "count", len(points))
	return nil
}

// Search implements Store. Class scoping becomes a should-filter: the
// chunk's class matches the caller's, is the admin scope, or is absent.
func (q *Qdrant) Search(ctx context.Context, embedding []float32, topK int, classScope string) ([]Result, error) {
	if topK <= 0 {
		return nil, nil
	}

	req := &pb.SearchPoints{
		CollectionName: q.collection,
		Vector:         embedding,
		Limit:          uint64(topK),
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	}

	if classScope != "" {
		req.Filter = &pb.Filter{
			Should: []*pb.Condition{
				fieldMatch("class_code", classScope),
				fieldMatch("class_code", ScopeAdmin),
				fieldMatch("class_code", ""),
				{
					ConditionOneOf: &pb.Condition_IsEmpty{
						IsEmpty: &pb.IsEmptyCondition{Key: "class_code"},
					},
				},
			},
		}
	}

	resp, err := q.points.Search(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("searching points: %w", err)
	}

	results := make([]Result, 0, len(resp.GetResult()))
	for _, hit := range resp.GetResult() {
		payload := hit.GetPayload()
		results = append(results, Result{
			Content: payload["content"].GetStringValue(),
			Metadata: Metadata{
				FileID:      payload["file_id"].GetStringValue(),
				ClassCode:   payload["class_code"].GetStringValue(),
				Category:    payload["category"].GetStringValue(),
				Subcategory: payload["subcategory"].GetStringValue(),
				ChunkIndex:  int(payload["chunk_index"].GetIntegerValue()),
			},
			Score: float64(hit.GetScore()),
		})
	}
	return results, nil
}

// DeleteByFileID implements Store.
func (q *Qdrant) DeleteByFileID(ctx context.Context, fileID string) error {
	wait := true
	_, err := q.points.Delete(ctx, &pb.DeletePoints{
		CollectionName: q.collection,
		Wait:           &wait,
		Points: &pb.PointsSelector{
			PointsSelectorOneOf: &pb.PointsSelector_Filter{
				Filter: &pb.Filter{
					Must: []*pb.Condition{
						fieldMatch("file_id", fileID),
					},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("deleting points for file %q: %w", fileID, err)
	}
	q.logger.Debug("deleted chunks", "file_id", fileID)
	return nil
}

// Close implements Store.
func (q *Qdrant) Close() error {
	return q.conn.Close()
}

func stringValue(s string) *pb.Value {
	return &pb.Value{Kind: &pb.Value_StringValue{StringValue: s}}
}

func fieldMatch(key, value string) *pb.Condition {
	return &pb.Condition{
		ConditionOneOf: &pb.Condition_Field{
			Field: &pb.FieldCondition{
				Key: key,
				Match: &pb.Match{
					MatchValue: &pb.Match_Keyword{Keyword: value},
				},
			},
		},
	}
}
