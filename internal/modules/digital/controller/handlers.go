package controller

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/JorgeS15/AirLab/internal/modules/digital/service"
	"github.com/JorgeS15/AirLab/internal/modules/digital/types"
	"github.com/JorgeS15/AirLab/internal/utils"
)

type vectorResponse struct {
	Success   bool                   `json:"success"`
	Timestamp time.Time              `json:"timestamp"`
	Inputs    map[string]types.Point `json:"inputs,omitempty"`
	Outputs   map[string]types.Point `json:"outputs,omitempty"`
	Values    []int                  `json:"values"`
}

type setOutputRequest struct {
	Output *int `json:"output"`
	Value  *int `json:"value"`
}

type setOutputResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Output  int    `json:"output"`
	Value   int    `json:"value"`
	Outputs []int  `json:"outputs"`
}

type setAllOutputsRequest struct {
	Outputs []int `json:"outputs"`
}

type setAllOutputsResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Outputs []int  `json:"outputs"`
}

func (c *digitalControllerImpl) handleInputs(w http.ResponseWriter, r *http.Request) {
	v, err := c.gateway.ReadInputs()
	if err != nil {
		slog.Warn("digital inputs unavailable", "error", err)
		utils.WriteError(w, http.StatusServiceUnavailable, "failed to read digital inputs")
		return
	}
	utils.WriteJSON(w, http.StatusOK, vectorResponse{
		Success:   true,
		Timestamp: c.now().UTC(),
		Inputs:    v.Points("input"),
		Values:    v.Slice(),
	})
}

func (c *digitalControllerImpl) handleOutputs(w http.ResponseWriter, r *http.Request) {
	v := c.gateway.ReadOutputs()
	utils.WriteJSON(w, http.StatusOK, vectorResponse{
		Success:   true,
		Timestamp: c.now().UTC(),
		Outputs:   v.Points("output"),
		Values:    v.Slice(),
	})
}

func (c *digitalControllerImpl) handleSetOutput(w http.ResponseWriter, r *http.Request) {
	var req setOutputRequest
	if err := utils.DecodeJSON(w, r, &req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Output == nil || req.Value == nil {
		utils.WriteError(w, http.StatusBadRequest, "Missing output or value parameter")
		return
	}

	v, err := c.gateway.SetOutput(*req.Output, *req.Value)
	if err != nil {
		writeGatewayError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, setOutputResponse{
		Success: true,
		Message: fmt.Sprintf("Output %d set to %d", *req.Output, *req.Value),
		Output:  *req.Output,
		Value:   *req.Value,
		Outputs: v.Slice(),
	})
}

func (c *digitalControllerImpl) handleSetAllOutputs(w http.ResponseWriter, r *http.Request) {
	var req setAllOutputsRequest
	if err := utils.DecodeJSON(w, r, &req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	v, err := c.gateway.SetAllOutputs(req.Outputs)
	if err != nil {
		writeGatewayError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, setAllOutputsResponse{
		Success: true,
		Message: "All outputs updated",
		Outputs: v.Slice(),
	})
}

func writeGatewayError(w http.ResponseWriter, err error) {
	var verr *service.ValidationError
	if errors.As(err, &verr) {
		utils.WriteError(w, http.StatusBadRequest, verr.Message)
		return
	}
	slog.Error("digital outputs write failed", "error", err)
	utils.WriteError(w, http.StatusInternalServerError, "failed to write digital outputs")
}
