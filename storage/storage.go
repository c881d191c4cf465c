package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"

	"flow-api/domain"
)

// Entity kind prefixes. A record's RowKey is "<kind>:<local id>" and its
// PartitionKey is the owning user's id, so cross-user reads are impossible
// by construction.
const (
	kindProject      = "project"
	kindTask         = "task"
	kindHabit        = "habit"
	kindHabitDay     = "habitday"
	kindGoal         = "goal"
	kindEvent        = "event"
	kindJournal      = "journal"
	kindJournalTag   = "journaltag"
	kindReadable     = "readable"
	kindProductivity = "productivity"
)

const userPartition = "user"

// Store provides access to the user and entity tables and the sync queue.
type Store struct {
	users     *aztables.Client
	entities  *aztables.Client
	syncQueue *azqueue.QueueClient
}

// New creates a Store from the given connection string.
func New(connStr, usersTable, entitiesTable, syncQueue string) (*Store, error) {
	tablesClientOptions := aztables.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    3,
				TryTimeout:    time.Minute * 3,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 15,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	svc, err := aztables.NewServiceClientFromConnectionString(connStr, &tablesClientOptions)
	if err != nil {
		return nil, err
	}
	queueClientOptions := azqueue.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    5,
				TryTimeout:    time.Minute * 5,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 60,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	q, err := azqueue.NewQueueClientFromConnectionString(connStr, syncQueue, &queueClientOptions)
	if err != nil {
		return nil, err
	}
	return &Store{
		users:     svc.NewClient(usersTable),
		entities:  svc.NewClient(entitiesTable),
		syncQueue: q,
	}, nil
}

// row is the single-column document layout shared by all entity kinds.
type row struct {
	aztables.Entity
	Data string `json:"Data"`
}

// userRow adds an Email column so sign-in can look users up by address.
type userRow struct {
	aztables.Entity
	Email string `json:"Email"`
	Data  string `json:"Data"`
}

func partition(userID int64) string {
	return strconv.FormatInt(userID, 10)
}

func numericRowKey(kind string, id int64) string {
	return fmt.Sprintf("%s:%019d", kind, id)
}

func stringRowKey(kind, id string) string {
	return kind + ":" + id
}

func userRowKey(id int64) string {
	return fmt.Sprintf("%019d", id)
}

func isNotFound(err error) bool {
	var respErr *azcore.ResponseError
	return errors.As(err, &respErr) && respErr.StatusCode == http.StatusNotFound
}

// escapeFilter doubles single quotes for use inside OData filter literals.
func escapeFilter(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

func (s *Store) put(ctx context.Context, pk, rk string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	ent := row{
		Entity: aztables.Entity{PartitionKey: pk, RowKey: rk},
		Data:   string(data),
	}
	payload, err := json.Marshal(ent)
	if err != nil {
		return err
	}
	_, err = s.entities.UpsertEntity(ctx, payload, &aztables.UpsertEntityOptions{
		UpdateMode: aztables.UpdateModeReplace,
	})
	return err
}

// get unmarshals the row at (pk, rk) into out. It reports false with no
// error when the row does not exist.
func (s *Store) get(ctx context.Context, pk, rk string, out any) (bool, error) {
	resp, err := s.entities.GetEntity(ctx, pk, rk, nil)
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, err
	}
	var ent row
	if err := json.Unmarshal(resp.Value, &ent); err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(ent.Data), out); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) delete(ctx context.Context, pk, rk string) error {
	_, err := s.entities.DeleteEntity(ctx, pk, rk, nil)
	if err != nil && !isNotFound(err) {
		return err
	}
	return nil
}

// queryKind walks every row of one kind in the user's partition.
func (s *Store) queryKind(ctx context.Context, pk, kind string, each func(data []byte) error) error {
	// ';' is the character after ':', so this bounds the kind prefix.
	filter := fmt.Sprintf("PartitionKey eq '%s' and RowKey ge '%s:' and RowKey lt '%s;'", pk, kind, kind)
	return s.query(ctx, filter, each)
}

// queryRange walks rows of one kind whose local id falls in [from, to].
func (s *Store) queryRange(ctx context.Context, pk, kind, from, to string, each func(data []byte) error) error {
	filter := fmt.Sprintf("PartitionKey eq '%s' and RowKey ge '%s' and RowKey le '%s'",
		pk, stringRowKey(kind, from), stringRowKey(kind, to))
	return s.query(ctx, filter, each)
}

func (s *Store) query(ctx context.Context, filter string, each func(data []byte) error) error {
	pager := s.entities.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return err
		}
		for _, e := range resp.Entities {
			var ent row
			if err := json.Unmarshal(e, &ent); err != nil {
				return err
			}
			if err := each([]byte(ent.Data)); err != nil {
				return err
			}
		}
	}
	return nil
}

// GetUser retrieves a user by id; absent users yield (nil, nil).
func (s *Store) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	resp, err := s.users.GetEntity(ctx, userPartition, userRowKey(id), nil)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return decodeUserRow(resp.Value)
}

// GetUserByEmail retrieves a user by email; absent users yield (nil, nil).
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	filter := fmt.Sprintf("PartitionKey eq '%s' and Email eq '%s'", userPartition, escapeFilter(email))
	pager := s.users.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, e := range resp.Entities {
			return decodeUserRow(e)
		}
	}
	return nil, nil
}

// PutUser upserts the user record.
func (s *Store) PutUser(ctx context.Context, u *domain.User) error {
	data, err := json.Marshal(u)
	if err != nil {
		return err
	}
	ent := userRow{
		Entity: aztables.Entity{PartitionKey: userPartition, RowKey: userRowKey(u.ID)},
		Email:  u.Email,
		Data:   string(data),
	}
	payload, err := json.Marshal(ent)
	if err != nil {
		return err
	}
	_, err = s.users.UpsertEntity(ctx, payload, &aztables.UpsertEntityOptions{
		UpdateMode: aztables.UpdateModeReplace,
	})
	return err
}

// ListUsers pages through all users in id order.
func (s *Store) ListUsers(ctx context.Context, limit, offset int) ([]*domain.User, error) {
	filter := fmt.Sprintf("PartitionKey eq '%s'", userPartition)
	pager := s.users.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})
	users := []*domain.User{}
	skipped := 0
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, e := range resp.Entities {
			if skipped < offset {
				skipped++
				continue
			}
			if limit > 0 && len(users) >= limit {
				return users, nil
			}
			u, err := decodeUserRow(e)
			if err != nil {
				return nil, err
			}
			users = append(users, u)
		}
	}
	return users, nil
}

// UsersWithIntegration returns every user carrying the given integration
// property. Credentials live inside the document blob, so this scans the
// users table; acceptable at single-tenant scale.
func (s *Store) UsersWithIntegration(ctx context.Context, prop string) ([]*domain.User, error) {
	all, err := s.ListUsers(ctx, 0, 0)
	if err != nil {
		return nil, err
	}
	matched := []*domain.User{}
	for _, u := range all {
		if u.IntegrationProp(prop, "") != "" {
			matched = append(matched, u)
		}
	}
	return matched, nil
}

func decodeUserRow(data []byte) (*domain.User, error) {
	var ent userRow
	if err := json.Unmarshal(data, &ent); err != nil {
		return nil, err
	}
	var u domain.User
	if err := json.Unmarshal([]byte(ent.Data), &u); err != nil {
		return nil, err
	}
	return &u, nil
}
