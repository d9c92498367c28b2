// Package watch cung cấp consumer cho MongoDB change stream: mỗi collection được
// theo dõi bởi đúng một goroutine, handler chạy tuần tự theo thứ tự sự kiện.
package watch

import (
	"context"
	"time"

	"civic_admin/internal/logger"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EventType phân loại sự kiện change stream
type EventType string

const (
	EventAdded    EventType = "added"    // insert
	EventModified EventType = "modified" // update / replace
	EventRemoved  EventType = "removed"  // delete
)

// Event là một sự kiện thay đổi trên collection được theo dõi.
// FullDocument là trạng thái document sau thay đổi (fullDocument: updateLookup);
// với EventRemoved chỉ có DocumentID. UpdatedFields liệt kê các field bị $set
// trong update — dùng để phân loại trigger (status/priority/assignedDepartment).
type Event struct {
	Type          EventType
	DocumentID    primitive.ObjectID
	FullDocument  bson.Raw
	UpdatedFields map[string]interface{}
	RemovedFields []string
}

// Handler xử lý một sự kiện. Handler chạy tuần tự trên goroutine của watcher,
// lỗi bên trong handler tự log — watcher không dừng vì một sự kiện hỏng.
type Handler func(ctx context.Context, event Event)

// changeDocument là shape tối thiểu của change stream document mà watcher cần
type changeDocument struct {
	OperationType string   `bson:"operationType"`
	FullDocument  bson.Raw `bson:"fullDocument"`
	DocumentKey   struct {
		ID primitive.ObjectID `bson:"_id"`
	} `bson:"documentKey"`
	UpdateDescription struct {
		UpdatedFields map[string]interface{} `bson:"updatedFields"`
		RemovedFields []string               `bson:"removedFields"`
	} `bson:"updateDescription"`
}

// Watcher theo dõi một collection qua change stream và đẩy sự kiện vào handler.
// Stream lỗi → đóng, chờ backoff rồi mở lại; sự kiện trong lúc đứt stream trông
// cậy vào sweep định kỳ và tính idempotent của handler.
type Watcher struct {
	collection *mongo.Collection
	name       string
	handler    Handler
	backoff    time.Duration
}

// NewWatcher tạo mới Watcher cho một collection.
// name chỉ dùng cho log (vd: "issues", "assignment_rules").
func NewWatcher(collection *mongo.Collection, name string, handler Handler) *Watcher {
	return &Watcher{
		collection: collection,
		name:       name,
		handler:    handler,
		backoff:    5 * time.Second,
	}
}

// Start chạy vòng lặp consume cho tới khi ctx bị hủy. Chạy trong goroutine:
//
//	go watcher.Start(ctx)
func (w *Watcher) Start(ctx context.Context) {
	log := logger.GetAppLogger()

	log.WithFields(map[string]interface{}{
		"collection": w.name,
	}).Info("👁️ [WATCH] Starting change stream consumer...")

	for {
		w.consume(ctx)

		select {
		case <-ctx.Done():
			log.WithFields(map[string]interface{}{
				"collection": w.name,
			}).Info("👁️ [WATCH] Change stream consumer stopped")
			return
		case <-time.After(w.backoff):
			log.WithFields(map[string]interface{}{
				"collection": w.name,
			}).Warn("👁️ [WATCH] Mở lại change stream sau lỗi")
		}
	}
}

// consume mở change stream và xử lý sự kiện cho tới khi stream lỗi hoặc ctx bị hủy
func (w *Watcher) consume(ctx context.Context) {
	log := logger.GetAppLogger()

	defer func() {
		if r := recover(); r != nil {
			log.WithFields(map[string]interface{}{
				"collection": w.name,
				"panic":      r,
			}).Error("👁️ [WATCH] Panic trong consumer, sẽ mở lại stream")
		}
	}()

	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.M{
			"operationType": bson.M{"$in": []string{"insert", "update", "replace", "delete"}},
		}}},
	}
	opts := options.ChangeStream().SetFullDocument(options.UpdateLookup)

	stream, err := w.collection.Watch(ctx, pipeline, opts)
	if err != nil {
		if ctx.Err() == nil {
			log.WithError(err).WithFields(map[string]interface{}{
				"collection": w.name,
			}).Error("👁️ [WATCH] Không mở được change stream")
		}
		return
	}
	defer stream.Close(context.Background())

	for stream.Next(ctx) {
		var doc changeDocument
		if err := stream.Decode(&doc); err != nil {
			log.WithError(err).WithFields(map[string]interface{}{
				"collection": w.name,
			}).Warn("👁️ [WATCH] Bỏ qua sự kiện không decode được")
			continue
		}

		event, ok := toEvent(doc)
		if !ok {
			continue
		}
		w.dispatch(ctx, event)
	}

	if err := stream.Err(); err != nil && ctx.Err() == nil {
		log.WithError(err).WithFields(map[string]interface{}{
			"collection": w.name,
		}).Error("👁️ [WATCH] Change stream lỗi")
	}
}

// dispatch gọi handler với recover riêng cho từng sự kiện
func (w *Watcher) dispatch(ctx context.Context, event Event) {
	defer func() {
		if r := recover(); r != nil {
			logger.GetAppLogger().WithFields(map[string]interface{}{
				"collection": w.name,
				"documentId": event.DocumentID.Hex(),
				"panic":      r,
			}).Error("👁️ [WATCH] Panic trong handler, bỏ qua sự kiện")
		}
	}()
	w.handler(ctx, event)
}

// toEvent chuyển change stream document sang Event
func toEvent(doc changeDocument) (Event, bool) {
	event := Event{
		DocumentID:    doc.DocumentKey.ID,
		FullDocument:  doc.FullDocument,
		UpdatedFields: doc.UpdateDescription.UpdatedFields,
		RemovedFields: doc.UpdateDescription.RemovedFields,
	}

	switch doc.OperationType {
	case "insert":
		event.Type = EventAdded
	case "update", "replace":
		event.Type = EventModified
	case "delete":
		event.Type = EventRemoved
	default:
		return Event{}, false
	}

	return event, true
}
