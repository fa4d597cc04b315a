package model

import (
	"encoding/json"
	"time"
)

// Unique ID bounds. Every outfit ID is a 10-digit number.
const (
	MinUniqueID int64 = 1_000_000_000
	MaxUniqueID int64 = 9_999_999_999
)

// Outfit represents a record in the outfits table.
type Outfit struct {
	UniqueID              int64           `json:"uniqueId"`
	Name                  string          `json:"name"`
	Price                 int64           `json:"price"`
	AccessoryData         json.RawMessage `json:"accessoryData"`
	SerializedDescription json.RawMessage `json:"serializedDescription"`
	OtherMetadata         json.RawMessage `json:"otherMetadata"`
	Views                 int64           `json:"views"`
	Favourites            int64           `json:"favourites"`
	UploadTime            time.Time       `json:"uploadTime"`
}

// OutfitSummary is the shape returned by search. The game client reads
// other_metadata as "otherUsefulMetadata" and never receives accessory data here.
type OutfitSummary struct {
	Views                 int64           `json:"views"`
	Favourites            int64           `json:"favourites"`
	Name                  string          `json:"name"`
	UploadTime            time.Time       `json:"uploadTime"`
	Price                 int64           `json:"price"`
	OtherUsefulMetadata   json.RawMessage `json:"otherUsefulMetadata"`
	SerializedDescription json.RawMessage `json:"serializedDescription"`
	UniqueID              int64           `json:"uniqueId"`
}

// Summary converts an outfit to its search result shape.
func (o *Outfit) Summary() OutfitSummary {
	return OutfitSummary{
		Views:                 o.Views,
		Favourites:            o.Favourites,
		Name:                  o.Name,
		UploadTime:            o.UploadTime,
		Price:                 o.Price,
		OtherUsefulMetadata:   o.OtherMetadata,
		SerializedDescription: o.SerializedDescription,
		UniqueID:              o.UniqueID,
	}
}

// UploadInput holds the validated fields of a new outfit.
type UploadInput struct {
	Name                  string
	Price                 int64
	AccessoryData         json.RawMessage
	SerializedDescription json.RawMessage
	OtherMetadata         json.RawMessage
}
