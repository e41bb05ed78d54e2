// controllers/business_controller.go
package controllers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mansamusa/marketplace_backend/models"
	"github.com/mansamusa/marketplace_backend/services"
)

type BusinessController struct {
	businesses *services.BusinessService
}

func NewBusinessController(businesses *services.BusinessService) *BusinessController {
	return &BusinessController{businesses: businesses}
}

func (bc *BusinessController) Create(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req models.BusinessRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	business, err := bc.businesses.Create(ctx, actor, req)
	if err != nil {
		return respondError(c, err)
	}
	return respondCreated(c, "Business created successfully", business)
}

func (bc *BusinessController) Update(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	id, err := objectIDParam(c, "id")
	if err != nil {
		return err
	}
	var req models.BusinessRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	business, err := bc.businesses.Update(ctx, actor, id, req)
	if err != nil {
		return respondError(c, err)
	}
	return respondOK(c, "Business updated successfully", business)
}

// Get accepts either an id or a slug
func (bc *BusinessController) Get(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	business, err := bc.businesses.Get(ctx, c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return respondOK(c, "Business retrieved successfully", business)
}

// List is the public directory
func (bc *BusinessController) List(c echo.Context) error {
	page, limit := pageParams(c)

	ctx, cancel := requestContext(c)
	defer cancel()

	result, err := bc.businesses.List(ctx, c.QueryParam("category"), c.QueryParam("city"), c.QueryParam("q"), page, limit)
	if err != nil {
		return respondError(c, err)
	}
	return respondOK(c, "Businesses retrieved successfully", result)
}

func (bc *BusinessController) Mine(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	businesses, err := bc.businesses.Mine(ctx, actor)
	if err != nil {
		return respondError(c, err)
	}
	return respondOK(c, "Businesses retrieved successfully", businesses)
}

// UploadLogo accepts a multipart "logo" file
func (bc *BusinessController) UploadLogo(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	id, err := objectIDParam(c, "id")
	if err != nil {
		return err
	}

	file, err := c.FormFile("logo")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Logo file is required")
	}
	src, err := file.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Failed to open uploaded file")
	}
	defer src.Close()

	ctx, cancel := requestContext(c)
	defer cancel()

	url, err := bc.businesses.UploadLogo(ctx, actor, id, file.Filename, file.Size, src)
	if err != nil {
		return respondError(c, err)
	}
	return respondOK(c, "Logo uploaded successfully", map[string]string{"logoUrl": url})
}

func (bc *BusinessController) SubmitVerification(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	id, err := objectIDParam(c, "id")
	if err != nil {
		return err
	}
	var req models.VerificationRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	verification, err := bc.businesses.SubmitVerification(ctx, actor, id, req)
	if err != nil {
		return respondError(c, err)
	}
	return respondCreated(c, "Verification submitted successfully", verification)
}

func (bc *BusinessController) PendingVerifications(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	verifications, err := bc.businesses.PendingVerifications(ctx, actor)
	if err != nil {
		return respondError(c, err)
	}
	return respondOK(c, "Pending verifications retrieved successfully", verifications)
}

func (bc *BusinessController) DecideVerification(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	id, err := objectIDParam(c, "id")
	if err != nil {
		return err
	}
	var req models.VerificationDecision
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	verification, err := bc.businesses.DecideVerification(ctx, actor, id, req)
	if err != nil {
		return respondError(c, err)
	}
	return respondOK(c, "Verification "+verification.Status, verification)
}
