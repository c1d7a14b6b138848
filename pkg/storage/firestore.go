package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/levenlabs/go-lflag"
	"github.com/tarifscope/tarifscope/pkg/log"
	"github.com/tarifscope/tarifscope/pkg/types"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const colorDateFormat = "2006-01-02"

// FirestoreProvider implements the Database interface using Google Cloud
// Firestore. Every document stores its record as a JSON string under "json"
// so adding fields never needs a migration.
type FirestoreProvider struct {
	client    *firestore.Client
	projectID string
	database  string
}

// configuredFirestore sets up the Firestore provider.
// It registers flags for configuration.
func configuredFirestore() *FirestoreProvider {
	projectID := lflag.String("firestore-project-id", "", "Google Cloud Project ID for Firestore")
	database := lflag.String("firestore-database", "", "Google Cloud Firestore Database")
	emulator := lflag.String("firestore-emulator", "", "Use Firestore emulator")

	f := &FirestoreProvider{}

	lflag.Do(func() {
		f.projectID = *projectID
		f.database = *database

		// set this because that's how firestore client expects it
		if *emulator != "" {
			os.Setenv("FIRESTORE_EMULATOR_HOST", *emulator)
		}
	})

	return f
}

// Validate checks if the provider is properly configured.
func (f *FirestoreProvider) Validate() error {
	// Project ID may be empty when it can be inferred from the environment.
	return nil
}

// Init initializes the Firestore client.
// This must be called before using the provider methods.
func (f *FirestoreProvider) Init(ctx context.Context) error {
	projectID := f.projectID
	if projectID == "" {
		projectID = firestore.DetectProjectID
	}
	database := f.database
	if database == "" {
		database = firestore.DefaultDatabaseID
	}
	client, err := firestore.NewClientWithDatabase(ctx, projectID, database)
	if err != nil {
		return fmt.Errorf("failed to create firestore client (project=%s, database=%s): %w", projectID, database, err)
	}
	f.client = client
	return nil
}

// Close closes the Firestore client connection.
func (f *FirestoreProvider) Close() error {
	if f.client != nil {
		return f.client.Close()
	}
	return nil
}

func (f *FirestoreProvider) meterCollection(meterPointID, name string) (*firestore.CollectionRef, error) {
	if meterPointID == "" {
		return nil, fmt.Errorf("meterPointID cannot be empty")
	}
	return f.client.Collection("meter_points").Doc(meterPointID).Collection(name), nil
}

// decodeJSONDoc unmarshals the "json" field of a document into out.
func decodeJSONDoc(doc *firestore.DocumentSnapshot, out any) error {
	val, err := doc.DataAt("json")
	if err != nil {
		return fmt.Errorf("document %s missing 'json' field: %w", doc.Ref.ID, err)
	}
	jsonStr, ok := val.(string)
	if !ok {
		return fmt.Errorf("document %s 'json' field is not a string", doc.Ref.ID)
	}
	if err := json.Unmarshal([]byte(jsonStr), out); err != nil {
		return fmt.Errorf("failed to unmarshal document %s: %w", doc.Ref.ID, err)
	}
	return nil
}

// GetPlan retrieves a price plan from the "plans" collection.
func (f *FirestoreProvider) GetPlan(ctx context.Context, planID string) (types.PricePlan, error) {
	doc, err := f.client.Collection("plans").Doc(planID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return types.PricePlan{}, fmt.Errorf("%w: %s", ErrPlanNotFound, planID)
		}
		return types.PricePlan{}, fmt.Errorf("failed to get plan %s: %w", planID, err)
	}
	var plan types.PricePlan
	if err := decodeJSONDoc(doc, &plan); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "malformed plan doc", slog.String("planID", planID), slog.Any("error", err))
		return types.PricePlan{}, err
	}
	return plan, nil
}

// ListPlans retrieves the entire plan catalog. Malformed documents are
// skipped with a warning rather than failing the whole listing.
func (f *FirestoreProvider) ListPlans(ctx context.Context) ([]types.PricePlan, error) {
	iter := f.client.Collection("plans").Documents(ctx)
	defer iter.Stop()

	var plans []types.PricePlan
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error iterating plans: %w", err)
		}

		var plan types.PricePlan
		if err := decodeJSONDoc(doc, &plan); err != nil {
			log.Ctx(ctx).WarnContext(ctx, "skipping malformed plan doc", slog.String("planID", doc.Ref.ID), slog.Any("error", err))
			continue
		}
		plans = append(plans, plan)
	}
	return plans, nil
}

// UpsertPlan adds or updates a plan in the "plans" collection.
func (f *FirestoreProvider) UpsertPlan(ctx context.Context, plan types.PricePlan) error {
	if plan.ID == "" {
		return fmt.Errorf("plan ID cannot be empty")
	}
	jsonBytes, err := json.Marshal(plan)
	if err != nil {
		return fmt.Errorf("failed to marshal plan %s: %w", plan.ID, err)
	}
	_, err = f.client.Collection("plans").Doc(plan.ID).Set(ctx, map[string]interface{}{
		"json":       string(jsonBytes),
		"providerID": plan.ProviderID,
		"validFrom":  plan.ValidFrom,
	})
	if err != nil {
		return fmt.Errorf("failed to upsert plan %s: %w", plan.ID, err)
	}
	return nil
}

// DeletePlan removes a plan from the "plans" collection.
func (f *FirestoreProvider) DeletePlan(ctx context.Context, planID string) error {
	if planID == "" {
		return fmt.Errorf("plan ID cannot be empty")
	}
	_, err := f.client.Collection("plans").Doc(planID).Delete(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete plan %s: %w", planID, err)
	}
	return nil
}

// GetCachedReadings retrieves cached readings within [start, end) for a
// meter point. Document IDs are RFC3339 timestamps so the range filter runs
// on the ID without reading every document.
func (f *FirestoreProvider) GetCachedReadings(ctx context.Context, meterPointID string, start, end time.Time) ([]types.RawReading, error) {
	coll, err := f.meterCollection(meterPointID, "readings")
	if err != nil {
		return nil, err
	}

	startDocID := start.UTC().Format(time.RFC3339)
	endDocID := end.UTC().Format(time.RFC3339)

	iter := coll.
		Where(firestore.DocumentID, ">=", coll.Doc(startDocID)).
		Where(firestore.DocumentID, "<", coll.Doc(endDocID)).
		OrderBy(firestore.DocumentID, firestore.Asc).
		Documents(ctx)
	defer iter.Stop()

	var readings []types.RawReading
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error iterating readings: %w", err)
		}

		var r types.RawReading
		if err := decodeJSONDoc(doc, &r); err != nil {
			log.Ctx(ctx).WarnContext(ctx, "malformed reading doc",
				slog.String("docID", doc.Ref.ID), slog.String("meterPointID", meterPointID), slog.Any("error", err))
			return nil, err
		}
		readings = append(readings, r)
	}
	return readings, nil
}

// UpsertReadings writes readings back under the meter point. A year of
// half-hourly data is tens of thousands of documents, so writes go through
// a BulkWriter instead of one Set per round trip.
func (f *FirestoreProvider) UpsertReadings(ctx context.Context, meterPointID string, readings []types.RawReading) error {
	coll, err := f.meterCollection(meterPointID, "readings")
	if err != nil {
		return err
	}

	bw := f.client.BulkWriter(ctx)
	jobs := make([]*firestore.BulkWriterJob, 0, len(readings))
	for _, r := range readings {
		jsonBytes, err := json.Marshal(r)
		if err != nil {
			bw.End()
			return fmt.Errorf("failed to marshal reading at %s: %w", r.Timestamp, err)
		}
		docID := r.Timestamp.UTC().Format(time.RFC3339)
		job, err := bw.Set(coll.Doc(docID), map[string]interface{}{
			"json":      string(jsonBytes),
			"timestamp": r.Timestamp,
		})
		if err != nil {
			bw.End()
			return fmt.Errorf("failed to enqueue reading %s: %w", docID, err)
		}
		jobs = append(jobs, job)
	}
	bw.End()

	for _, job := range jobs {
		if _, err := job.Results(); err != nil {
			return fmt.Errorf("failed to upsert readings for %s: %w", meterPointID, err)
		}
	}
	return nil
}

// GetColorDays retrieves calendar color days within [start, end). Document
// IDs are the calendar date, which sorts lexicographically.
func (f *FirestoreProvider) GetColorDays(ctx context.Context, start, end time.Time) ([]types.ColorDay, error) {
	coll := f.client.Collection("color_days")

	startDocID := start.UTC().Format(colorDateFormat)
	endDocID := end.UTC().Format(colorDateFormat)

	iter := coll.
		Where(firestore.DocumentID, ">=", coll.Doc(startDocID)).
		Where(firestore.DocumentID, "<", coll.Doc(endDocID)).
		OrderBy(firestore.DocumentID, firestore.Asc).
		Documents(ctx)
	defer iter.Stop()

	var days []types.ColorDay
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error iterating color days: %w", err)
		}

		var d types.ColorDay
		if err := decodeJSONDoc(doc, &d); err != nil {
			log.Ctx(ctx).WarnContext(ctx, "malformed color day doc", slog.String("docID", doc.Ref.ID), slog.Any("error", err))
			return nil, err
		}
		days = append(days, d)
	}
	return days, nil
}

// UpsertColorDays adds or updates calendar color days.
func (f *FirestoreProvider) UpsertColorDays(ctx context.Context, days []types.ColorDay) error {
	coll := f.client.Collection("color_days")
	for _, d := range days {
		jsonBytes, err := json.Marshal(d)
		if err != nil {
			return fmt.Errorf("failed to marshal color day %s: %w", d.Date, err)
		}
		docID := d.Date.UTC().Format(colorDateFormat)
		_, err = coll.Doc(docID).Set(ctx, map[string]interface{}{
			"json": string(jsonBytes),
			"date": d.Date,
		})
		if err != nil {
			return fmt.Errorf("failed to upsert color day %s: %w", docID, err)
		}
	}
	return nil
}

// GetSettings retrieves the per-meter-point configuration from the
// "config/settings" document. A missing document returns default settings
// with version 0.
func (f *FirestoreProvider) GetSettings(ctx context.Context, meterPointID string) (types.Settings, int, error) {
	coll, err := f.meterCollection(meterPointID, "config")
	if err != nil {
		return types.Settings{}, 0, err
	}
	doc, err := coll.Doc("settings").Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return types.Settings{}, 0, nil
		}
		return types.Settings{}, 0, fmt.Errorf("failed to fetch settings doc: %w", err)
	}

	// Read version if available (default 0)
	var version int
	if v, err := doc.DataAt("version"); err == nil {
		if vInt, ok := v.(int64); ok {
			version = int(vInt)
		}
	}

	var s types.Settings
	if err := decodeJSONDoc(doc, &s); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "malformed settings doc", slog.String("meterPointID", meterPointID), slog.Any("error", err))
		return types.Settings{}, 0, err
	}
	return s, version, nil
}

// SetSettings saves the per-meter-point configuration to the
// "config/settings" document.
func (f *FirestoreProvider) SetSettings(ctx context.Context, meterPointID string, settings types.Settings, version int) error {
	jsonBytes, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	coll, err := f.meterCollection(meterPointID, "config")
	if err != nil {
		return err
	}
	_, err = coll.Doc("settings").Set(ctx, map[string]interface{}{
		"json":    string(jsonBytes),
		"version": version,
	})
	if err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}

// GetMeterPoint retrieves a meter point from the "meter_points" collection.
func (f *FirestoreProvider) GetMeterPoint(ctx context.Context, meterPointID string) (types.MeterPoint, error) {
	if meterPointID == "" {
		return types.MeterPoint{}, fmt.Errorf("meterPointID cannot be empty")
	}
	doc, err := f.client.Collection("meter_points").Doc(meterPointID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return types.MeterPoint{}, fmt.Errorf("%w: %s", ErrMeterPointNotFound, meterPointID)
		}
		return types.MeterPoint{}, fmt.Errorf("failed to get meter point %s: %w", meterPointID, err)
	}

	var mp types.MeterPoint
	if err := decodeJSONDoc(doc, &mp); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "malformed meter point doc", slog.String("meterPointID", meterPointID), slog.Any("error", err))
		return types.MeterPoint{}, err
	}
	return mp, nil
}

// ListMeterPoints retrieves all meter points owned by a user.
func (f *FirestoreProvider) ListMeterPoints(ctx context.Context, userID string) ([]types.MeterPoint, error) {
	iter := f.client.Collection("meter_points").
		Where("userID", "==", userID).
		Documents(ctx)
	defer iter.Stop()

	var points []types.MeterPoint
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error iterating meter points: %w", err)
		}

		var mp types.MeterPoint
		if err := decodeJSONDoc(doc, &mp); err != nil {
			log.Ctx(ctx).WarnContext(ctx, "skipping malformed meter point doc", slog.String("meterPointID", doc.Ref.ID), slog.Any("error", err))
			continue
		}
		points = append(points, mp)
	}
	return points, nil
}

// UpsertMeterPoint adds or updates a meter point. The owning user ID is
// duplicated as a top-level field so ListMeterPoints can filter on it.
func (f *FirestoreProvider) UpsertMeterPoint(ctx context.Context, mp types.MeterPoint) error {
	if mp.ID == "" {
		return fmt.Errorf("meter point ID cannot be empty")
	}
	jsonBytes, err := json.Marshal(mp)
	if err != nil {
		return fmt.Errorf("failed to marshal meter point %s: %w", mp.ID, err)
	}
	_, err = f.client.Collection("meter_points").Doc(mp.ID).Set(ctx, map[string]interface{}{
		"json":   string(jsonBytes),
		"userID": mp.UserID,
	}, firestore.MergeAll)
	if err != nil {
		return fmt.Errorf("failed to upsert meter point %s: %w", mp.ID, err)
	}
	return nil
}

// GetUser retrieves a user from the "users" collection.
func (f *FirestoreProvider) GetUser(ctx context.Context, userID string) (types.User, error) {
	doc, err := f.client.Collection("users").Doc(userID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return types.User{}, fmt.Errorf("%w: %s", ErrUserNotFound, userID)
		}
		return types.User{}, fmt.Errorf("failed to get user %s: %w", userID, err)
	}

	var user types.User
	if err := decodeJSONDoc(doc, &user); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "malformed user doc", slog.String("userID", userID), slog.Any("error", err))
		return types.User{}, err
	}
	return user, nil
}

// CreateUser creates a new user document in the "users" collection.
func (f *FirestoreProvider) CreateUser(ctx context.Context, user types.User) error {
	userJSON, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to marshal user %s: %w", user.ID, err)
	}
	_, err = f.client.Collection("users").Doc(user.ID).Create(ctx, map[string]interface{}{
		"json": string(userJSON),
	})
	if err != nil {
		return fmt.Errorf("failed to create user %s: %w", user.ID, err)
	}
	return nil
}

// UpdateUser updates an existing user document in the "users" collection.
func (f *FirestoreProvider) UpdateUser(ctx context.Context, user types.User) error {
	userJSON, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to marshal user %s: %w", user.ID, err)
	}
	_, err = f.client.Collection("users").Doc(user.ID).Set(ctx, map[string]interface{}{
		"json": string(userJSON),
	}, firestore.MergeAll)
	if err != nil {
		return fmt.Errorf("failed to update user %s: %w", user.ID, err)
	}
	return nil
}
