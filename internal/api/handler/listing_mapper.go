package handler

import (
	"github.com/nexus-app/marketplace/internal/core/domain"
	"github.com/nexus-app/marketplace/internal/core/ports"
)

// --- Request → Service input ---

func toCreateListingInput(req createListingRequest) ports.CreateListingInput {
	return ports.CreateListingInput{
		Kind:        req.Kind,
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		RequiredAt:  req.RequiredAt,
		Tags:        req.Tags,
		RatePerHour: req.RatePerHour,
		Price:       req.Price,
		Quantity:    req.Quantity,
	}
}

// --- Domain → HTTP response ---

func toListingResponse(l domain.Listing) listingResponse {
	h := l.Header()
	resp := listingResponse{
		ID:          h.ID,
		Kind:        string(l.Kind()),
		Title:       h.Title,
		Description: h.Description,
		Location:    h.Location,
		RequiredAt:  h.RequiredAt.UTC(),
		CreatedBy:   h.CreatedBy,
		CreatedAt:   h.CreatedAt.UTC(),
		Tags:        make([]tagResponse, 0, len(h.Tags)),
		Links:       map[string]string{"self": "/listings/" + h.ID},
	}
	for _, t := range h.Tags {
		resp.Tags = append(resp.Tags, tagResponse{ID: t.ID, Name: t.Name})
	}

	switch v := l.(type) {
	case *domain.JobListing:
		rate, count := v.RatePerHour, len(v.Applications)
		resp.RatePerHour = &rate
		resp.Applications = &count
		resp.Links["applications"] = "/listings/" + h.ID + "/applications"
	case *domain.ProductListing:
		price, qty := v.Price, v.Quantity
		resp.Price = &price
		resp.Quantity = &qty
	}
	return resp
}

func toApplicationResponse(a domain.Application) applicationResponse {
	return applicationResponse{
		ID:          a.ID,
		ApplicantID: a.ApplicantID,
		ListingID:   a.ListingID,
		AppliedAt:   a.AppliedAt.UTC(),
	}
}
