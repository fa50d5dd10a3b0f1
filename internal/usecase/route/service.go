package route

import (
	"context"

	"github.com/google/uuid"

	domainRoute "waste-fleet-monitor/internal/domain/route"
	domainUser "waste-fleet-monitor/internal/domain/user"
	"waste-fleet-monitor/internal/routing"
	appErrors "waste-fleet-monitor/pkg/errors"
	"waste-fleet-monitor/pkg/utils"
)

// Service implements the operator use cases for routes.
type Service struct {
	routes *routing.Service
	users  domainUser.Repository
}

func NewService(routes *routing.Service, users domainUser.Repository) *Service {
	return &Service{routes: routes, users: users}
}

// CreateRoutes dispatches one route per driver in a new batch.
func (s *Service) CreateRoutes(ctx context.Context, companyID uuid.UUID, req *CreateRoutesRequest) (*BatchResponse, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, appErrors.NewAppError("VALIDATION_ERROR", "Invalid input", err)
	}

	specs := make([]routing.RouteSpec, len(req.Routes))
	for i, r := range req.Routes {
		if err := ValidateDriver(ctx, s.users, companyID, r.DriverID); err != nil {
			return nil, err
		}
		points := make([]*domainRoute.Point, len(r.Points))
		for j, p := range r.Points {
			points[j] = p.toDomain()
			points[j].Address = utils.SanitizeString(p.Address)
		}
		specs[i] = routing.RouteSpec{DriverID: r.DriverID, Points: points}
	}

	batch, created, err := s.routes.CreateRoutes(ctx, companyID, specs)
	if err != nil {
		return nil, err
	}
	return ToBatchResponse(batch, created), nil
}

func (s *Service) GetRoute(ctx context.Context, companyID, routeID uuid.UUID) (*RouteResponse, error) {
	rt, err := s.routes.GetRoute(ctx, companyID, routeID)
	if err != nil {
		return nil, err
	}
	resp := ToRouteResponse(rt)
	return &resp, nil
}

func (s *Service) AbortRoute(ctx context.Context, companyID, routeID uuid.UUID) error {
	return s.routes.AbortByOperator(ctx, companyID, routeID)
}

func (s *Service) ResendRoute(ctx context.Context, companyID, routeID uuid.UUID) (*ResendResponse, error) {
	delivered, err := s.routes.Resend(ctx, companyID, routeID)
	if err != nil {
		return nil, err
	}
	return &ResendResponse{Delivered: delivered}, nil
}
