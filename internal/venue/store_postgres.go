package venue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
	"go.uber.org/zap"

	"github.com/brewtrail/brewtrail/internal/db"
	"github.com/brewtrail/brewtrail/internal/model"
)

// PostgresStore implements Store on PostgreSQL with PostGIS.
type PostgresStore struct {
	pool db.Pool
}

// NewPostgresStore creates a venue store backed by the given pool.
func NewPostgresStore(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const venueColumns = `id, name, street, city, state, postal_code, country,
	latitude, longitude, type, source, external_place_id, verification_tier,
	metadata, created_at`

func (s *PostgresStore) Get(ctx context.Context, id string) (*model.Venue, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+venueColumns+` FROM venues WHERE id = $1`, id)

	v, err := scanVenue(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "venue: get %s", id)
	}
	return v, nil
}

func (s *PostgresStore) GetByExternalID(ctx context.Context, externalID string) (*model.Venue, error) {
	if externalID == "" {
		return nil, nil
	}

	row := s.pool.QueryRow(ctx,
		`SELECT `+venueColumns+` FROM venues WHERE external_place_id = $1`, externalID)

	v, err := scanVenue(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "venue: get by external id")
	}
	return v, nil
}

func (s *PostgresStore) FindNearby(ctx context.Context, lat, lng, radiusM float64) ([]NearbyVenue, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+venueColumns+`,
			ST_Distance(geog, ST_SetSRID(ST_MakePoint($2, $1), 4326)::geography) AS distance_m
		 FROM venues
		 WHERE ST_DWithin(geog, ST_SetSRID(ST_MakePoint($2, $1), 4326)::geography, $3)
		 ORDER BY distance_m`,
		lat, lng, radiusM)
	if err != nil {
		return nil, eris.Wrap(err, "venue: find nearby")
	}
	defer rows.Close()

	var results []NearbyVenue
	for rows.Next() {
		var nv NearbyVenue
		v, err := scanVenueWithDistance(rows, &nv.DistanceM)
		if err != nil {
			return nil, eris.Wrap(err, "venue: scan nearby")
		}
		nv.Venue = *v
		results = append(results, nv)
	}
	return results, eris.Wrap(rows.Err(), "venue: find nearby iterate")
}

func (s *PostgresStore) Create(ctx context.Context, v *model.Venue) (*model.Venue, error) {
	if v.ID == "" {
		v.ID = uuid.New().String()
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now().UTC()
	}

	point := geom.NewPointFlat(geom.XY, []float64{v.Longitude, v.Latitude}).SetSRID(4326)
	geogWKB, err := ewkb.Marshal(point, ewkb.NDR)
	if err != nil {
		return nil, eris.Wrap(err, "venue: encode point")
	}

	var metadataJSON []byte
	if len(v.Metadata) > 0 {
		metadataJSON, err = json.Marshal(v.Metadata)
		if err != nil {
			return nil, eris.Wrap(err, "venue: marshal metadata")
		}
	}

	var externalID *string
	if v.ExternalPlaceID != "" {
		externalID = &v.ExternalPlaceID
	}

	tag, err := s.pool.Exec(ctx,
		`INSERT INTO venues (id, name, street, city, state, postal_code, country,
			latitude, longitude, geog, type, source, external_place_id,
			verification_tier, metadata, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, ST_GeogFromWKB($10),
			$11, $12, $13, $14, $15, $16)
		 ON CONFLICT DO NOTHING`,
		v.ID, v.Name, v.Street, v.City, v.State, v.PostalCode, v.Country,
		v.Latitude, v.Longitude, geogWKB, string(v.Type), v.Source, externalID,
		v.VerificationTier, metadataJSON, v.CreatedAt)
	if err != nil {
		return nil, eris.Wrap(err, "venue: insert")
	}

	if tag.RowsAffected() == 0 {
		// A concurrent import won the race; adopt its row.
		existing, err := s.rematch(ctx, v)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			zap.L().Debug("venue creation raced, reusing existing",
				zap.String("name", v.Name), zap.String("id", existing.ID))
			return existing, nil
		}
		return nil, eris.Errorf("venue: insert conflict with no matching row for %q", v.Name)
	}

	return v, nil
}

// rematch finds the row a conflicting insert collided with: by external id
// first, then by the rounded-coordinate+name uniqueness key.
func (s *PostgresStore) rematch(ctx context.Context, v *model.Venue) (*model.Venue, error) {
	if v.ExternalPlaceID != "" {
		existing, err := s.GetByExternalID(ctx, v.ExternalPlaceID)
		if err != nil || existing != nil {
			return existing, err
		}
	}

	row := s.pool.QueryRow(ctx,
		`SELECT `+venueColumns+` FROM venues
		 WHERE round(latitude::numeric, 4) = round($1::numeric, 4)
		   AND round(longitude::numeric, 4) = round($2::numeric, 4)
		   AND lower(name) = lower($3)`,
		v.Latitude, v.Longitude, v.Name)

	existing, err := scanVenue(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "venue: rematch")
	}
	return existing, nil
}

func scanVenue(row pgx.Row) (*model.Venue, error) {
	return scanVenueWithDistance(row, nil)
}

func scanVenueWithDistance(row pgx.Row, distance *float64) (*model.Venue, error) {
	var (
		v            model.Venue
		venueType    string
		externalID   *string
		metadataJSON []byte
	)

	dest := []any{
		&v.ID, &v.Name, &v.Street, &v.City, &v.State, &v.PostalCode, &v.Country,
		&v.Latitude, &v.Longitude, &venueType, &v.Source, &externalID,
		&v.VerificationTier, &metadataJSON, &v.CreatedAt,
	}
	if distance != nil {
		dest = append(dest, distance)
	}

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	v.Type = model.VenueType(venueType)
	if externalID != nil {
		v.ExternalPlaceID = *externalID
	}
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &v.Metadata); err != nil {
			return nil, eris.Wrap(err, "venue: unmarshal metadata")
		}
	}
	return &v, nil
}
