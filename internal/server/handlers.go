package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"gitlab.com/yelinaung/rentbook/internal/backup"
	"gitlab.com/yelinaung/rentbook/internal/logger"
	"gitlab.com/yelinaung/rentbook/internal/models"
)

// maxSnapshotSize caps uploaded snapshots at 32 MiB. Snapshots are whole
// households of data, not bulk archives; anything bigger is a mistake.
const maxSnapshotSize = 32 << 20

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	data, err := s.exporter.Export(r.Context())
	if err != nil {
		logger.Log.Error().Err(err).Msg("Export failed")
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="rentbook_backup.json"`)
	_, _ = w.Write(data)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxSnapshotSize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	result := s.importer.Import(r.Context(), data)
	writeJSON(w, statusForResult(result), result)
}

func (s *Server) handleImportAuto(w http.ResponseWriter, r *http.Request) {
	result, err := s.importer.ImportAutoBackup(r.Context(), s.auto.Path())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			writeError(w, http.StatusNotFound, "no auto backup found")
			return
		}
		logger.Log.Error().Err(err).Msg("Auto backup restore failed")
		writeError(w, http.StatusInternalServerError, "failed to read auto backup")
		return
	}
	writeJSON(w, statusForResult(result), result)
}

// saveBillRequest is the payload for the bill-save entry point.
type saveBillRequest struct {
	TenantRoomNumber string           `json:"tenantRoomNumber"`
	Month            string           `json:"month"`
	TotalAmount      decimal.Decimal  `json:"totalAmount"`
	CreatedDate      *time.Time       `json:"createdDate"`
	Details          []saveBillDetail `json:"details"`
}

type saveBillDetail struct {
	Type            string           `json:"type"`
	Name            string           `json:"name"`
	Amount          decimal.Decimal  `json:"amount"`
	PricePerUnit    *decimal.Decimal `json:"pricePerUnit"`
	PreviousReading *decimal.Decimal `json:"previousReading"`
	CurrentReading  *decimal.Decimal `json:"currentReading"`
	Usage           *decimal.Decimal `json:"usage"`
}

func (s *Server) handleSaveBill(w http.ResponseWriter, r *http.Request) {
	var req saveBillRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxSnapshotSize)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid bill payload")
		return
	}
	if req.TenantRoomNumber == "" {
		writeError(w, http.StatusBadRequest, "tenantRoomNumber is required")
		return
	}
	if !backup.IsValidMonth(req.Month) {
		writeError(w, http.StatusBadRequest, "month must match YYYY-MM")
		return
	}

	bill := models.Bill{
		TenantRoomNumber: req.TenantRoomNumber,
		Month:            req.Month,
		TotalAmount:      req.TotalAmount,
	}
	if req.CreatedDate != nil {
		bill.CreatedDate = *req.CreatedDate
	}

	details := make([]models.BillDetail, 0, len(req.Details))
	for i := range req.Details {
		d := req.Details[i]
		detail := models.BillDetail{
			Type:            d.Type,
			Name:            d.Name,
			Amount:          d.Amount,
			PricePerUnit:    d.PricePerUnit,
			PreviousReading: d.PreviousReading,
			CurrentReading:  d.CurrentReading,
			Usage:           d.Usage,
		}
		if detail.Usage == nil {
			detail.Usage = detail.ResolvedUsage()
		}
		details = append(details, detail)
	}

	if err := s.store.SaveBill(r.Context(), &bill, details); err != nil {
		logger.Log.Error().Err(err).
			Str("room", logger.HashRoomNumber(bill.TenantRoomNumber)).
			Str("month", bill.Month).
			Msg("Bill save failed")
		writeError(w, http.StatusInternalServerError, "failed to save bill")
		return
	}

	// Auto backup fires after the save; its failure never reaches the caller.
	s.auto.BillSaved(r.Context())

	writeJSON(w, http.StatusCreated, map[string]any{"id": bill.ID})
}

func statusForResult(result *backup.ImportResult) int {
	if result.Stage == backup.StageFailed {
		return http.StatusBadRequest
	}
	if !result.Success {
		return http.StatusInternalServerError
	}
	return http.StatusOK
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Log.Error().Err(err).Msg("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
