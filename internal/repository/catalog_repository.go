package repository

import (
	"context"

	"storefront-checkout/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Colecciones del catálogo por tipo de ítem
var catalogCollections = map[model.ItemType]string{
	model.ItemTypeProduct:      "products",
	model.ItemTypeBundle:       "bundles",
	model.ItemTypeMasterBundle: "master_bundles",
}

type catalogDoc struct {
	ID       interface{} `bson:"_id"`
	Title    string      `bson:"title"`
	Price    float64     `bson:"price"`
	Currency string      `bson:"currency"`
	Active   bool        `bson:"is_active"`
}

// Solo lectura. El CRUD del catálogo vive en otro servicio.
type MongoCatalogRepository struct {
	db *mongo.Database
}

func NewMongoCatalogRepository(db *mongo.Database) *MongoCatalogRepository {
	return &MongoCatalogRepository{db: db}
}

// FindItem busca un ítem por id y tipo. Los ids pueden ser ObjectID o string.
func (r *MongoCatalogRepository) FindItem(ctx context.Context, id string, itemType model.ItemType) (*model.CatalogItem, error) {
	name, ok := catalogCollections[itemType]
	if !ok || id == "" {
		return nil, ErrNotFound
	}

	ids := bson.A{id}
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		ids = append(ids, oid)
	}

	var doc catalogDoc
	err := r.db.Collection(name).FindOne(ctx, bson.M{"_id": bson.M{"$in": ids}}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &model.CatalogItem{
		ID:       id,
		Type:     itemType,
		Title:    doc.Title,
		Price:    doc.Price,
		Currency: doc.Currency,
		Active:   doc.Active,
	}, nil
}
