package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"cloud.google.com/go/bigquery"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/toolrelay/toolrelay/internal/security"
)

// BigQueryService streams audit events into a BigQuery table.
type BigQueryService struct {
	client    *bigquery.Client
	projectID string
	location  string
	dataset   string
	table     string
}

// NewBigQueryService creates a new BigQuery client
func NewBigQueryService(ctx context.Context, projectID, credentialsFile, location, dataset, table string) (*BigQueryService, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := bigquery.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("bigquery.NewClient: %w", err)
	}
	client.Location = location

	return &BigQueryService{
		client:    client,
		projectID: projectID,
		location:  location,
		dataset:   dataset,
		table:     table,
	}, nil
}

// Close releases the BigQuery client
func (s *BigQueryService) Close() error {
	return s.client.Close()
}

// TestConnection verifies BigQuery connectivity
func (s *BigQueryService) TestConnection(ctx context.Context) error {
	q := s.client.Query("SELECT 1")
	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("query run: %w", err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("job wait: %w", err)
	}
	return status.Err()
}

// EnsureAuditTable creates the audit table, partitioned by day on the event
// timestamp, when it does not exist yet.
func (s *BigQueryService) EnsureAuditTable(ctx context.Context) error {
	tbl := s.client.Dataset(s.dataset).Table(s.table)
	_, err := tbl.Metadata(ctx)
	if err == nil {
		return nil
	}
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) || apiErr.Code != http.StatusNotFound {
		return fmt.Errorf("get table %s.%s: %w", s.dataset, s.table, err)
	}

	schema, err := bigquery.InferSchema(security.ChatEvent{})
	if err != nil {
		return fmt.Errorf("infer audit schema: %w", err)
	}
	meta := &bigquery.TableMetadata{
		Schema: schema,
		TimePartitioning: &bigquery.TimePartitioning{
			Type:  bigquery.DayPartitioningType,
			Field: "timestamp",
		},
	}
	if err := tbl.Create(ctx, meta); err != nil {
		return fmt.Errorf("create table %s.%s: %w", s.dataset, s.table, err)
	}
	log.Info().Str("dataset", s.dataset).Str("table", s.table).Msg("created audit table")
	return nil
}

// Export implements security.AuditSink with a streaming insert.
func (s *BigQueryService) Export(ctx context.Context, ev security.ChatEvent) error {
	ins := s.client.Dataset(s.dataset).Table(s.table).Inserter()
	saver := &bigquery.StructSaver{Struct: ev, InsertID: ev.RequestID}
	if err := ins.Put(ctx, saver); err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}
