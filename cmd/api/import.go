package main

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/echocare/caregiver-api/internal/event"
	"github.com/echocare/caregiver-api/internal/model"
	patientService "github.com/echocare/caregiver-api/internal/service/patient"
	"github.com/echocare/caregiver-api/internal/webhook"
	apperrors "github.com/echocare/caregiver-api/pkg/errors"
)

func newImportPatientsCommand() *cobra.Command {
	var owner, file string
	cmd := &cobra.Command{
		Use:   "import-patients",
		Short: "Import care recipients for an account from a CSV file",
		Long: "Reads a CSV with a header row (full_name, primary_contact, secondary_contact,\n" +
			"date_of_birth, gender, address, notes, timezone). Rows go through the same\n" +
			"validation and duplicate check as the API.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ownerID, err := uuid.Parse(owner)
			if err != nil {
				return fmt.Errorf("invalid --owner: %w", err)
			}
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}
			st, err := openStores(cmd.Context(), cfg.Database)
			if err != nil {
				return err
			}
			defer st.Close()

			f, err := os.Open(file)
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", file, err)
			}
			defer f.Close()

			dispatcher := webhook.NewDispatcher(cfg.Integrations.WebhookURL, webhook.WithTimeout(cfg.Integrations.HTTPTimeout))
			defer dispatcher.Wait()
			svc := patientService.NewService(st.patients, dispatcher, event.NewBus())

			res, err := importPatients(cmd.Context(), svc, ownerID, f, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			log.Info().Int("created", res.created).Int("skipped", res.skipped).Msg("Import complete")
			return nil
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "account id that will own the records")
	cmd.Flags().StringVar(&file, "file", "", "CSV file to import")
	_ = cmd.MarkFlagRequired("owner")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

type importResult struct {
	created int
	skipped int
}

// importPatients creates one care recipient per row. Invalid and duplicate
// rows are reported and skipped; other errors stop the import.
func importPatients(ctx context.Context, svc *patientService.Service, ownerID uuid.UUID, r io.Reader, errOut io.Writer) (importResult, error) {
	var res importResult
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return res, fmt.Errorf("failed to read header: %w", err)
	}
	columns := make(map[string]int, len(header))
	for i, h := range header {
		columns[strings.ToLower(strings.TrimSpace(h))] = i
	}
	get := func(row []string, name string) string {
		i, ok := columns[name]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	line := 1
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return res, nil
		}
		line++
		if err != nil {
			return res, fmt.Errorf("line %d: %w", line, err)
		}

		form := model.PatientForm{
			FullName:         get(row, "full_name"),
			PrimaryContact:   get(row, "primary_contact"),
			SecondaryContact: get(row, "secondary_contact"),
			DateOfBirth:      model.ParseDate(get(row, "date_of_birth")),
			Gender:           strings.ToLower(strings.TrimSpace(get(row, "gender"))),
			Address:          get(row, "address"),
			Notes:            get(row, "notes"),
			Timezone:         get(row, "timezone"),
		}
		if _, err := svc.Create(ctx, ownerID, form); err != nil {
			var appErr *apperrors.AppError
			if !errors.As(err, &appErr) || appErr.StatusCode() >= 500 {
				return res, fmt.Errorf("line %d: %w", line, err)
			}
			res.skipped++
			fmt.Fprintf(errOut, "line %d: %s\n", line, describe(appErr))
			continue
		}
		res.created++
	}
}

func describe(err *apperrors.AppError) string {
	if len(err.Fields) == 0 {
		return err.Message
	}
	parts := make([]string, 0, len(err.Fields))
	for _, f := range err.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return err.Message + " (" + strings.Join(parts, "; ") + ")"
}
