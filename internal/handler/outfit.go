package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"outfit-db-api/internal/middleware"
	"outfit-db-api/internal/model"
	"outfit-db-api/internal/service"
	"outfit-db-api/pkg/apierror"
	"outfit-db-api/pkg/response"
	"outfit-db-api/pkg/validate"
)

// GetOutfitDetailsRequest maps caller-chosen keys to outfit IDs.
type GetOutfitDetailsRequest struct {
	OutfitUniqueIds map[string]int64 `json:"OutfitUniqueIds" validate:"required"`
}

// SearchOutfitsRequest is the body of SearchOutfitsAsync.
type SearchOutfitsRequest struct {
	SortType      string `json:"SortType" validate:"omitempty,oneof=Newest Popular Trending"`
	Amount        int    `json:"Amount" validate:"required,min=1,max=200"`
	SearchKeyword string `json:"SearchKeyword" validate:"max=100"`
}

// UploadOutfitRequest is the body of UploadOutfit. AccessoryData arrives as
// a JSON-encoded string.
type UploadOutfitRequest struct {
	Name                  string          `json:"Name" validate:"required,min=1,max=255"`
	AccessoryData         string          `json:"AccessoryData" validate:"required,json"`
	Price                 *int64          `json:"Price" validate:"omitempty,min=0"`
	SerializedDescription json.RawMessage `json:"SerializedDescription" validate:"jsonobject"`
	OtherMetadata         json.RawMessage `json:"OtherMetadata" validate:"jsonobject"`
}

// IncrementResponse is returned by both counter endpoints.
type IncrementResponse struct {
	Success bool  `json:"success"`
	Updated int64 `json:"updated"`
}

// OutfitHandler handles the game client's outfit endpoints.
type OutfitHandler struct {
	outfits   *service.OutfitService
	validator *validate.Validator
	logger    *zap.Logger
}

// NewOutfitHandler creates a new outfit handler.
func NewOutfitHandler(outfits *service.OutfitService, logger *zap.Logger) *OutfitHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OutfitHandler{
		outfits:   outfits,
		validator: validate.New(),
		logger:    logger.Named("handler"),
	}
}

// GetOutfitDetails handles POST /api/GetOutfitDetails
func (h *OutfitHandler) GetOutfitDetails(w http.ResponseWriter, r *http.Request) {
	var req GetOutfitDetailsRequest
	if apiErr := h.bind(r, &req); apiErr != nil {
		response.Error(w, apiErr)
		return
	}

	details, err := h.outfits.GetOutfitDetails(storeContext(r), req.OutfitUniqueIds)
	if err != nil {
		h.fail(w, r, "GetOutfitDetails", err)
		return
	}

	response.OK(w, details)
}

// SearchOutfitsAsync handles POST /api/SearchOutfitsAsync
func (h *OutfitHandler) SearchOutfitsAsync(w http.ResponseWriter, r *http.Request) {
	var req SearchOutfitsRequest
	if apiErr := h.bind(r, &req); apiErr != nil {
		response.Error(w, apiErr)
		return
	}

	sort, _ := model.ParseSortType(req.SortType)
	summaries, err := h.outfits.Search(storeContext(r), model.SearchParams{
		Keyword: req.SearchKeyword,
		Sort:    sort,
		Limit:   req.Amount,
	})
	if err != nil {
		h.fail(w, r, "SearchOutfitsAsync", err)
		return
	}

	response.OK(w, summaries)
}

// UploadOutfit handles POST /api/UploadOutfit. The response body is the bare
// unique ID.
func (h *OutfitHandler) UploadOutfit(w http.ResponseWriter, r *http.Request) {
	var req UploadOutfitRequest
	if apiErr := h.bind(r, &req); apiErr != nil {
		response.Error(w, apiErr)
		return
	}

	in := model.UploadInput{
		Name:                  req.Name,
		AccessoryData:         json.RawMessage(req.AccessoryData),
		SerializedDescription: optionalObject(req.SerializedDescription),
		OtherMetadata:         optionalObject(req.OtherMetadata),
	}
	if req.Price != nil {
		in.Price = *req.Price
	}

	id, err := h.outfits.Upload(storeContext(r), in)
	if err != nil {
		h.fail(w, r, "UploadOutfit", err)
		return
	}

	response.OK(w, id)
}

// IncrementViews handles POST /api/IncrementViews
func (h *OutfitHandler) IncrementViews(w http.ResponseWriter, r *http.Request) {
	h.increment(w, r, "IncrementViews", h.outfits.IncrementViews)
}

// IncrementFavourites handles POST /api/IncrementFavourites
func (h *OutfitHandler) IncrementFavourites(w http.ResponseWriter, r *http.Request) {
	h.increment(w, r, "IncrementFavourites", h.outfits.IncrementFavourites)
}

func (h *OutfitHandler) increment(
	w http.ResponseWriter,
	r *http.Request,
	op string,
	apply func(ctx context.Context, ids []int64) (int64, error),
) {
	var ids []int64
	if apiErr := decodeJSON(r, &ids); apiErr != nil {
		response.Error(w, apiErr)
		return
	}
	if ids == nil {
		response.Error(w, apierror.ValidationError("", apierror.FieldError{
			Field:   "body",
			Message: "Body must be an array of outfit unique IDs",
		}))
		return
	}

	updated, err := apply(storeContext(r), ids)
	if err != nil {
		h.fail(w, r, op, err)
		return
	}

	response.OK(w, IncrementResponse{Success: true, Updated: updated})
}

// storeContext keeps the request's values but not its cancellation, so a
// client that disconnects mid-request does not abort the store operation.
func storeContext(r *http.Request) context.Context {
	return context.WithoutCancel(r.Context())
}

// bind decodes the JSON body into dst and validates it.
func (h *OutfitHandler) bind(r *http.Request, dst interface{}) *apierror.Error {
	if apiErr := decodeJSON(r, dst); apiErr != nil {
		return apiErr
	}
	return h.validator.Struct(dst)
}

// fail maps a service error to a response. Storage detail is logged, never
// returned.
func (h *OutfitHandler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	if apiErr, ok := apierror.As(err); ok {
		response.Error(w, apiErr)
		return
	}

	if errors.Is(err, service.ErrInvalidAccessoryData) {
		response.Error(w, apierror.ValidationError("", apierror.FieldError{
			Field:   "AccessoryData",
			Message: "AccessoryData must be valid JSON",
		}))
		return
	}

	h.logger.Error(op+" failed",
		zap.Error(err),
		zap.Bool("id_allocation_exhausted", errors.Is(err, service.ErrIDAllocationExhausted)),
		zap.String("request_id", middleware.GetRequestID(r.Context())),
	)
	response.Error(w, apierror.InternalError("Internal server error"))
}

// optionalObject treats an absent or null document as unset.
func optionalObject(raw json.RawMessage) json.RawMessage {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	return trimmed
}
