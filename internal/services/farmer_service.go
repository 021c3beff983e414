package services

import (
	"context"
	"strings"

	"coffee-backend/internal/apperrors"
	"coffee-backend/internal/models"
	"coffee-backend/internal/scope"
)

type FarmerService struct {
	Farmers FarmerStore
}

func NewFarmerService(farmers FarmerStore) *FarmerService {
	return &FarmerService{Farmers: farmers}
}

func (s *FarmerService) Create(ctx context.Context, access scope.Access, req models.CreateFarmerRequest, createdBy int) (*models.Farmer, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, apperrors.Validation("farmer name is required")
	}
	if strings.TrimSpace(req.Phone) == "" {
		return nil, apperrors.Validation("phone number is required")
	}
	if strings.TrimSpace(req.WeighStation) == "" {
		return nil, apperrors.Validation("weigh station is required")
	}
	if err := access.CheckWrite(req.WeighStation); err != nil {
		return nil, err
	}

	farmer := &models.Farmer{
		Name:            strings.TrimSpace(req.Name),
		Phone:           strings.TrimSpace(req.Phone),
		NationalID:      strings.TrimSpace(req.NationalID),
		WeighStation:    req.WeighStation,
		Season:          req.Season,
		Location:        req.Location,
		CreatedByUserID: createdBy,
	}
	if err := s.Farmers.Create(ctx, farmer); err != nil {
		return nil, err
	}
	return farmer, nil
}

func (s *FarmerService) Get(ctx context.Context, access scope.Access, id int) (*models.Farmer, error) {
	farmer, err := s.Farmers.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !access.AllowsRegion(farmer.WeighStation) {
		return nil, apperrors.AccessDenied("farmer %d is outside your assigned region", id)
	}
	return farmer, nil
}

func (s *FarmerService) List(ctx context.Context, access scope.Access, filter models.FarmerFilter) ([]*models.Farmer, error) {
	return s.Farmers.List(ctx, access.FilterFarmers(filter))
}

func (s *FarmerService) Update(ctx context.Context, access scope.Access, id int, req models.UpdateFarmerRequest) (*models.Farmer, error) {
	farmer, err := s.Get(ctx, access, id)
	if err != nil {
		return nil, err
	}
	// Moving a farmer to another station is itself a write to that station
	if err := access.CheckWrite(req.WeighStation); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Name) == "" {
		return nil, apperrors.Validation("farmer name is required")
	}

	farmer.Name = strings.TrimSpace(req.Name)
	farmer.Phone = strings.TrimSpace(req.Phone)
	farmer.NationalID = strings.TrimSpace(req.NationalID)
	farmer.WeighStation = req.WeighStation
	farmer.Season = req.Season
	farmer.Location = req.Location
	if err := s.Farmers.Update(ctx, farmer); err != nil {
		return nil, err
	}
	return farmer, nil
}
