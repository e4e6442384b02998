package store

import (
	"context"
	"encoding/json"
	"fmt"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/avvvet/cardfit-services/internal/scoring"
)

// CardsCollection is the Mongo collection holding one document per card.
const CardsCollection = "cards"

type MongoCardStore struct {
	coll *mongo.Collection
}

func NewMongoCardStore(db *mongo.Database) *MongoCardStore {
	return &MongoCardStore{coll: db.Collection(CardsCollection)}
}

// ListCards returns every card document ordered by id. Documents go through
// relaxed extended JSON so the lenient card decoding applies to them too.
func (s *MongoCardStore) ListCards(ctx context.Context) ([]scoring.Card, error) {
	opts := options.Find().SetSort(bson.D{{Key: "id", Value: 1}})
	cursor, err := s.coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("find cards: %w", err)
	}
	defer cursor.Close(ctx)

	var cards []scoring.Card
	for cursor.Next(ctx) {
		card, err := decodeCardDoc(cursor.Current)
		if err != nil {
			log.Warnf("skipping unreadable card document: %s", err)
			continue
		}
		if card.ID == "" {
			continue
		}
		cards = append(cards, card)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate cards: %w", err)
	}

	return cards, nil
}

func decodeCardDoc(raw bson.Raw) (scoring.Card, error) {
	var card scoring.Card
	ext, err := bson.MarshalExtJSON(raw, false, false)
	if err != nil {
		return card, fmt.Errorf("convert card document: %w", err)
	}
	if err := json.Unmarshal(ext, &card); err != nil {
		return card, fmt.Errorf("decode card document: %w", err)
	}
	return card, nil
}

func encodeCardDoc(c scoring.Card) (bson.D, error) {
	raw, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode card %s: %w", c.ID, err)
	}
	var doc bson.D
	if err := bson.UnmarshalExtJSON(raw, false, &doc); err != nil {
		return nil, fmt.Errorf("convert card %s: %w", c.ID, err)
	}
	return doc, nil
}

// UpsertCards replaces each card document by id, inserting missing ones.
func (s *MongoCardStore) UpsertCards(ctx context.Context, cards []scoring.Card) (int, error) {
	n := 0
	for _, c := range withIDs(cards) {
		doc, err := encodeCardDoc(c)
		if err != nil {
			return n, err
		}
		res, err := s.coll.ReplaceOne(ctx, bson.M{"id": string(c.ID)}, doc, options.Replace().SetUpsert(true))
		if err != nil {
			return n, fmt.Errorf("upsert card %s: %w", c.ID, err)
		}
		n += int(res.MatchedCount + res.UpsertedCount)
	}
	return n, nil
}
