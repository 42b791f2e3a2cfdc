// Package mongojournal implements journal.Journal atop MongoDB, for
// deployments that need the journal to survive process restarts or be read
// by more than one process. It mirrors the teacher's Mongo-backed run and
// runlog stores (features/run/mongo, features/runlog/mongo): a single
// collection with a unique compound index enforcing the gap-free sequencing
// invariant at the storage layer.
package mongojournal

import (
	"context"
	"encoding/json"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/arcanrun/arcane/event"
	"github.com/arcanrun/arcane/journal"
)

// doc is the BSON-mapped storage shape for one event. Payload is stored as
// its canonical JSON encoding so the collection schema stays stable across
// the closed event.Type taxonomy (and forward-compatible CustomPayload
// variants) without a BSON union type per payload struct.
type doc struct {
	SessionID string            `bson:"session_id"`
	BranchID  string            `bson:"branch_id"`
	Seq       uint64            `bson:"seq"`
	ID        string            `bson:"id"`
	RunID     string            `bson:"run_id"`
	Timestamp int64             `bson:"ts_unix_micro"`
	ParentID  string            `bson:"parent_id"`
	Metadata  map[string]string `bson:"metadata"`
	Type      string            `bson:"type"`
	Payload   []byte            `bson:"payload"`
}

// Journal is a MongoDB-backed journal.Journal.
type Journal struct {
	coll *mongo.Collection
}

// New constructs a Journal against the given collection. Callers are
// responsible for creating the collection's unique index:
//
//	db.Collection(name).Indexes().CreateOne(ctx, mongo.IndexModel{
//	    Keys:    bson.D{{Key: "session_id", Value: 1}, {Key: "branch_id", Value: 1}, {Key: "seq", Value: 1}},
//	    Options: options.Index().SetUnique(true),
//	})
func New(coll *mongo.Collection) *Journal {
	return &Journal{coll: coll}
}

// EnsureIndexes creates the unique compound index enforcing gap-free
// sequencing, if it does not already exist.
func (j *Journal) EnsureIndexes(ctx context.Context) error {
	_, err := j.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "session_id", Value: 1},
			{Key: "branch_id", Value: 1},
			{Key: "seq", Value: 1},
		},
		Options: options.Index().SetUnique(true),
	})
	return err
}

func (j *Journal) Append(ctx context.Context, ev event.Event) error {
	ev.BranchID = journal.NormalizeBranch(ev.BranchID)
	head, err := j.HeadSeq(ctx, ev.SessionID, ev.BranchID)
	if err != nil {
		return err
	}
	if ev.Seq != head+1 {
		return journal.ErrSeqConflict
	}
	payload, err := json.Marshal(ev.Payload)
	if err != nil {
		return err
	}
	d := doc{
		SessionID: ev.SessionID,
		BranchID:  ev.BranchID,
		Seq:       ev.Seq,
		ID:        ev.ID,
		RunID:     ev.RunID,
		Timestamp: ev.TimestampUnixMicro,
		ParentID:  ev.ParentID,
		Metadata:  ev.Metadata,
		Type:      string(ev.Type),
		Payload:   payload,
	}
	_, err = j.coll.InsertOne(ctx, d)
	if mongo.IsDuplicateKeyError(err) {
		return journal.ErrSeqConflict
	}
	return err
}

func (j *Journal) HeadSeq(ctx context.Context, sessionID, branchID string) (uint64, error) {
	branchID = journal.NormalizeBranch(branchID)
	opts := options.FindOne().SetSort(bson.D{{Key: "seq", Value: -1}})
	var d doc
	err := j.coll.FindOne(ctx, bson.M{"session_id": sessionID, "branch_id": branchID}, opts).Decode(&d)
	if err == mongo.ErrNoDocuments {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return d.Seq, nil
}

func (j *Journal) Read(ctx context.Context, q journal.Query) ([]event.Event, error) {
	branchID := journal.NormalizeBranch(q.BranchID)
	filter := bson.M{"branch_id": branchID}
	if q.SessionID != "" {
		filter["session_id"] = q.SessionID
	}
	if q.RunID != "" {
		filter["run_id"] = q.RunID
	}
	seqFilter := bson.M{}
	if q.SinceSeq != 0 {
		seqFilter["$gte"] = q.SinceSeq
	}
	if q.UntilSeq != 0 {
		seqFilter["$lte"] = q.UntilSeq
	}
	if len(seqFilter) > 0 {
		filter["seq"] = seqFilter
	}

	cur, err := j.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "seq", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := make([]event.Event, 0)
	for cur.Next(ctx) {
		var d doc
		if err := cur.Decode(&d); err != nil {
			return nil, err
		}
		ev, err := fromDoc(d)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, cur.Err()
}

// Subscribe is unsupported by the Mongo backend directly: fan-out across
// processes is the concern of journal/redisbus, layered on top of this
// Journal for the Append path. A single-process caller that only needs
// local notifications should use journal/inmem instead.
func (j *Journal) Subscribe(ctx context.Context) (<-chan event.Event, func(), error) {
	ch := make(chan event.Event)
	close(ch)
	return ch, func() {}, nil
}

func fromDoc(d doc) (event.Event, error) {
	payload, err := event.DecodePayload(event.Type(d.Type), d.Payload)
	if err != nil {
		return event.Event{}, err
	}
	return event.Event{
		ID:                 d.ID,
		SessionID:           d.SessionID,
		BranchID:            d.BranchID,
		RunID:               d.RunID,
		Seq:                 d.Seq,
		TimestampUnixMicro:  d.Timestamp,
		ParentID:            d.ParentID,
		Metadata:            d.Metadata,
		Type:                event.Type(d.Type),
		Payload:             payload,
	}, nil
}
