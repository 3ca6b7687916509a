package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront-checkout/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrNotFound         = errors.New("order not found")
	ErrDuplicateSession = errors.New("an order already exists for this checkout session")
	// El documento existe pero ya no está en un estado desde el que se pueda transicionar
	ErrStaleStatus = errors.New("order status changed concurrently")
)

type MongoOrderRepository struct {
	col *mongo.Collection
	now func() time.Time
}

func NewMongoOrderRepository(db *mongo.Database) *MongoOrderRepository {
	return &MongoOrderRepository{
		col: db.Collection("orders"),
		now: func() time.Time { return time.Now().UTC() },
	}
}

// EnsureIndexes crea el índice único por session id y los secundarios.
func (m *MongoOrderRepository) EnsureIndexes(ctx context.Context) error {
	_, err := m.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "payment.session_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("ux_payment_session_id"),
		},
		{Keys: bson.D{{Key: "payment.payment_intent_id", Value: 1}}},
		{Keys: bson.D{{Key: "user_id", Value: 1}}},
		{Keys: bson.D{{Key: "email", Value: 1}}},
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "status", Value: 1}}},
	})
	return err
}

// Create inserta una orden nueva. Si la sesión ya tiene orden devuelve ErrDuplicateSession.
func (m *MongoOrderRepository) Create(ctx context.Context, o *model.Order) error {
	m.stamp(o)

	res, err := m.col.InsertOne(ctx, o)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicateSession
	}
	if err != nil {
		return err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		o.ID = oid
	}
	return nil
}

// UpsertBySession hace find-or-create atómico por session id.
// created es true solo si este llamado insertó el documento.
func (m *MongoOrderRepository) UpsertBySession(ctx context.Context, o *model.Order) (*model.Order, bool, error) {
	sessionID := o.Payment.SessionID
	if sessionID == "" {
		return nil, false, errors.New("session id required")
	}
	m.stamp(o)

	doc, err := setOnInsertDoc(o)
	if err != nil {
		return nil, false, err
	}

	filter := bson.M{"payment.session_id": sessionID}
	update := bson.M{"$setOnInsert": doc}
	opts := options.Update().SetUpsert(true)

	created := false
	res, err := m.col.UpdateOne(ctx, filter, update, opts)
	switch {
	case mongo.IsDuplicateKeyError(err):
		// Otra entrega del mismo webhook ganó la carrera
	case err != nil:
		return nil, false, err
	default:
		created = res.UpsertedCount == 1
	}

	stored, err := m.FindBySessionID(ctx, sessionID)
	if err != nil {
		return nil, false, err
	}
	return stored, created, nil
}

// TransitionStatus aplica el cambio solo si la orden sigue en un estado origen válido.
func (m *MongoOrderRepository) TransitionStatus(ctx context.Context, id primitive.ObjectID, change model.StatusChange) (*model.Order, error) {
	sources := model.SourcesFor(change.To)
	if len(sources) == 0 {
		return nil, model.ErrInvalidTransition
	}
	now := m.now()

	set := bson.M{
		"status":     change.To,
		"updated_at": now,
	}
	if change.To == model.StatusPaid {
		set["paid_at"] = now
	}
	if change.PaymentIntentID != "" {
		set["payment.payment_intent_id"] = change.PaymentIntentID
	}
	if change.CustomerID != "" {
		set["payment.customer_id"] = change.CustomerID
	}
	if change.AmountMismatch {
		set["amount_mismatch"] = true
	}

	filter := bson.M{
		"_id":    id,
		"status": bson.M{"$in": sources},
	}
	update := bson.M{
		"$set": set,
		"$push": bson.M{
			"history": model.StatusRecord{Status: change.To, Reason: change.Reason, Timestamp: now},
		},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var out model.Order
	err := m.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&out)
	if err == mongo.ErrNoDocuments {
		return nil, ErrStaleStatus
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (m *MongoOrderRepository) FindByID(ctx context.Context, id string) (*model.Order, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	return m.findOne(ctx, bson.M{"_id": oid})
}

func (m *MongoOrderRepository) FindBySessionID(ctx context.Context, sessionID string) (*model.Order, error) {
	return m.findOne(ctx, bson.M{"payment.session_id": sessionID})
}

func (m *MongoOrderRepository) FindByPaymentIntentID(ctx context.Context, paymentIntentID string) (*model.Order, error) {
	return m.findOne(ctx, bson.M{"payment.payment_intent_id": paymentIntentID})
}

func (m *MongoOrderRepository) FindAll(ctx context.Context) ([]*model.Order, error) {
	return m.find(ctx, bson.M{})
}

func (m *MongoOrderRepository) FindByStatus(ctx context.Context, status model.OrderStatus) ([]*model.Order, error) {
	return m.find(ctx, bson.M{"status": status})
}

// FindByOwner busca por user_id o por email (las órdenes de webhook pueden no tener usuario).
func (m *MongoOrderRepository) FindByOwner(ctx context.Context, userID, email string) ([]*model.Order, error) {
	var or bson.A
	if userID != "" {
		or = append(or, bson.M{"user_id": userID})
	}
	if email = model.NormalizeEmail(email); email != "" {
		or = append(or, bson.M{"email": email})
	}
	if len(or) == 0 {
		return []*model.Order{}, nil
	}
	return m.find(ctx, bson.M{"$or": or})
}

func (m *MongoOrderRepository) findOne(ctx context.Context, filter bson.M) (*model.Order, error) {
	var res model.Order
	err := m.col.FindOne(ctx, filter).Decode(&res)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (m *MongoOrderRepository) find(ctx context.Context, filter bson.M) ([]*model.Order, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := m.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []*model.Order{}
	for cur.Next(ctx) {
		var v model.Order
		if err := cur.Decode(&v); err != nil {
			return nil, err
		}
		out = append(out, &v)
	}
	return out, cur.Err()
}

// stamp completa timestamps y el primer registro del historial.
func (m *MongoOrderRepository) stamp(o *model.Order) {
	now := m.now()
	if o.CreatedAt.IsZero() {
		o.CreatedAt = now
	}
	o.UpdatedAt = now
	if len(o.History) == 0 {
		o.History = []model.StatusRecord{
			{Status: o.Status, Reason: "order created", Timestamp: now},
		}
	}
}

// setOnInsertDoc aplana "payment" porque el filtro del upsert ya fija payment.session_id
// y Mongo rechaza escribir el subdocumento completo en el mismo update.
func setOnInsertDoc(o *model.Order) (bson.M, error) {
	raw, err := bson.Marshal(o)
	if err != nil {
		return nil, fmt.Errorf("marshal order: %w", err)
	}
	var doc bson.M
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal order: %w", err)
	}
	delete(doc, "_id")
	delete(doc, "payment")
	if o.Payment.PaymentIntentID != "" {
		doc["payment.payment_intent_id"] = o.Payment.PaymentIntentID
	}
	if o.Payment.CustomerID != "" {
		doc["payment.customer_id"] = o.Payment.CustomerID
	}
	return doc, nil
}
