// controllers/qr_controller.go
package controllers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mansamusa/marketplace_backend/models"
	"github.com/mansamusa/marketplace_backend/services"
)

type QRController struct {
	qr *services.QRService
}

func NewQRController(qr *services.QRService) *QRController {
	return &QRController{qr: qr}
}

// Create issues a new code for one of the owner's businesses
func (qc *QRController) Create(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	businessID, err := objectIDParam(c, "id")
	if err != nil {
		return err
	}
	var req models.QRCodeRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	code, err := qc.qr.Create(ctx, actor, businessID, req)
	if err != nil {
		return respondError(c, err)
	}
	return respondCreated(c, "QR code created successfully", map[string]interface{}{
		"qrCode":  code,
		"scanUrl": qc.qr.ScanURL(code.Token),
	})
}

func (qc *QRController) List(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	businessID, err := objectIDParam(c, "id")
	if err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	codes, err := qc.qr.List(ctx, actor, businessID)
	if err != nil {
		return respondError(c, err)
	}
	return respondOK(c, "QR codes retrieved successfully", codes)
}

func (qc *QRController) Deactivate(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	id, err := objectIDParam(c, "id")
	if err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if err := qc.qr.Deactivate(ctx, actor, id); err != nil {
		return respondError(c, err)
	}
	return respondOK(c, "QR code deactivated successfully", nil)
}

// Image returns the printable PNG, or a data URL with ?format=base64
func (qc *QRController) Image(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	id, err := objectIDParam(c, "id")
	if err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if c.QueryParam("format") == "base64" {
		dataURL, err := qc.qr.ImageDataURL(ctx, actor, id)
		if err != nil {
			return respondError(c, err)
		}
		return respondOK(c, "QR code generated successfully", map[string]string{"image": dataURL})
	}

	img, err := qc.qr.Image(ctx, actor, id)
	if err != nil {
		return respondError(c, err)
	}
	c.Response().Header().Set("Cache-Control", "private, max-age=3600")
	return c.Blob(http.StatusOK, "image/png", img)
}

// Scan awards points to the scanning customer
func (qc *QRController) Scan(c echo.Context) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req models.ScanRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	result, err := qc.qr.Scan(ctx, actor, req.Token)
	if err != nil {
		return respondError(c, err)
	}
	return respondOK(c, "Points awarded", result)
}
