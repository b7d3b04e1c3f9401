package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"pixelpaws-server/internal/metrics"
	"pixelpaws-server/internal/model"
	"pixelpaws-server/internal/store"
)

type DeviceHandler struct {
	Store   *store.Store
	Metrics *metrics.Metrics
	Logger  *slog.Logger
	Now     func() time.Time
}

// optionalString tells an absent JSON field apart from an explicit null.
type optionalString struct {
	Set   bool
	Value *string
}

func (o *optionalString) UnmarshalJSON(data []byte) error {
	o.Set = true
	if string(data) == "null" {
		o.Value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	o.Value = &s
	return nil
}

type patchDeviceStateBody struct {
	Visible       *bool          `json:"visible"`
	SelectedCatID optionalString `json:"selectedCatId"`
}

var errBodyNotObject = errors.New("request body must be a JSON object")

// UnmarshalJSON rejects bodies that are not JSON objects, so a bare null is
// not mistaken for an empty patch.
func (b *patchDeviceStateBody) UnmarshalJSON(data []byte) error {
	if !bytes.HasPrefix(bytes.TrimSpace(data), []byte("{")) {
		return errBodyNotObject
	}
	type plain patchDeviceStateBody
	return json.Unmarshal(data, (*plain)(b))
}

type replaceDeviceStateBody struct {
	Visible       *bool   `json:"visible" binding:"required"`
	SelectedCatID *string `json:"selectedCatId"`
}

func (h *DeviceHandler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

func (h *DeviceHandler) GetState(c *gin.Context) {
	deviceID := c.Param("deviceId")

	device, err := h.Store.Devices().Get(c.Request.Context(), deviceID)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			c.JSON(http.StatusOK, model.DefaultDeviceState())
			return
		}
		internalError(c, h.Logger, "get device state failed", err, "device_id", deviceID)
		return
	}
	c.JSON(http.StatusOK, device.State())
}

// PatchState merges the supplied fields into the device state. Fields left
// out of the body keep their stored value.
func (h *DeviceHandler) PatchState(c *gin.Context) {
	var body patchDeviceStateBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.Metrics.DeviceStateWritesTotal.WithLabelValues("invalid").Inc()
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid request body"})
		return
	}

	h.write(c, store.DevicePatch{
		Visible:        body.Visible,
		SelectedCatID:  body.SelectedCatID.Value,
		SetSelectedCat: body.SelectedCatID.Set,
	})
}

// ReplaceState overwrites the whole device state. A missing selectedCatId
// clears the selection.
func (h *DeviceHandler) ReplaceState(c *gin.Context) {
	var body replaceDeviceStateBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.Metrics.DeviceStateWritesTotal.WithLabelValues("invalid").Inc()
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid request body"})
		return
	}

	h.write(c, store.DevicePatch{
		Visible:        body.Visible,
		SelectedCatID:  body.SelectedCatID,
		SetSelectedCat: true,
	})
}

func (h *DeviceHandler) write(c *gin.Context, patch store.DevicePatch) {
	deviceID := c.Param("deviceId")

	device, err := h.Store.Devices().Patch(c.Request.Context(), deviceID, patch, h.now())
	if err != nil {
		if errors.Is(err, store.ErrUnknownCat) {
			h.Metrics.DeviceStateWritesTotal.WithLabelValues("unknown_cat").Inc()
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "unknown cat"})
			return
		}
		h.Metrics.DeviceStateWritesTotal.WithLabelValues("error").Inc()
		internalError(c, h.Logger, "write device state failed", err, "device_id", deviceID)
		return
	}

	h.Metrics.DeviceStateWritesTotal.WithLabelValues("ok").Inc()
	h.Logger.DebugContext(c.Request.Context(), "device state written",
		"device_id", deviceID, "visible", device.Visible, "selected_cat_id", catIDOrEmpty(device.SelectedCatID))
	c.JSON(http.StatusOK, device.State())
}

func catIDOrEmpty(id *string) string {
	if id == nil {
		return ""
	}
	return *id
}
