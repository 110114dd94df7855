package storage

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/bytedance/sonic"
	log "github.com/sirupsen/logrus"

	"todo-api/domain"
)

const (
	tasksPartition = "tasks"
	edmInt32       = "Edm.Int32"
)

// Tables stores tasks in a single Azure table partition keyed by task id.
type Tables struct {
	taskTable *aztables.Client
}

// NewTables creates the table client and makes sure the table exists.
func NewTables(ctx context.Context, connStr, tasksTable string) (*Tables, error) {
	if connStr == "" || tasksTable == "" {
		return nil, errors.New("missing table storage config")
	}
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
	tt := svc.NewClient(tasksTable)
	if _, err := tt.CreateTable(ctx, nil); err != nil {
		var respErr *azcore.ResponseError
		if !(errors.As(err, &respErr) && respErr.ErrorCode == string(aztables.TableAlreadyExists)) {
			return nil, err
		}
	} else {
		log.WithField("table", tasksTable).Info("created tasks table")
	}
	return &Tables{taskTable: tt}, nil
}

type taskEntity struct {
	PartitionKey string `json:"PartitionKey"`
	RowKey       string `json:"RowKey"`
	Text         string `json:"Text"`
	Completed    bool   `json:"Completed"`
	Order        int    `json:"Order"`
	OrderType    string `json:"Order@odata.type,omitempty"`
	CreatedAt    string `json:"CreatedAt"`
}

type taskPatchEntity struct {
	PartitionKey string  `json:"PartitionKey"`
	RowKey       string  `json:"RowKey"`
	Text         *string `json:"Text,omitempty"`
	Completed    *bool   `json:"Completed,omitempty"`
	Order        *int    `json:"Order,omitempty"`
	OrderType    *string `json:"Order@odata.type,omitempty"`
}

func (s *Tables) ListTasks(ctx context.Context) ([]domain.TaskDocument, error) {
	filter := "PartitionKey eq '" + tasksPartition + "'"
	pager := s.taskTable.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})
	docs := []domain.TaskDocument{}
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, e := range resp.Entities {
			doc, err := decodeTaskEntity(e)
			if err != nil {
				return nil, err
			}
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

func (s *Tables) GetTask(ctx context.Context, id string) (*domain.TaskDocument, error) {
	if !validRowKey(id) {
		return nil, nil
	}
	ent, err := s.taskTable.GetEntity(ctx, tasksPartition, id, nil)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	doc, err := decodeTaskEntity(ent.Value)
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (s *Tables) InsertTask(ctx context.Context, doc domain.TaskDocument) error {
	payload, err := encodeTaskEntity(doc)
	if err != nil {
		return err
	}
	_, err = s.taskTable.AddEntity(ctx, payload, nil)
	return err
}

// UpdateTask merges the patch into an existing entity; a missing entity is left alone.
func (s *Tables) UpdateTask(ctx context.Context, id string, patch domain.TaskPatch) error {
	if !validRowKey(id) {
		return nil
	}
	payload, err := encodeTaskPatch(id, patch)
	if err != nil {
		return err
	}
	et := azcore.ETagAny
	_, err = s.taskTable.UpdateEntity(ctx, payload, &aztables.UpdateEntityOptions{IfMatch: &et, UpdateMode: aztables.UpdateModeMerge})
	if err != nil && isNotFound(err) {
		return nil
	}
	return err
}

func (s *Tables) DeleteTask(ctx context.Context, id string) (int64, error) {
	if !validRowKey(id) {
		return 0, nil
	}
	et := azcore.ETagAny
	if _, err := s.taskTable.DeleteEntity(ctx, tasksPartition, id, &aztables.DeleteEntityOptions{IfMatch: &et}); err != nil {
		if isNotFound(err) {
			return 0, nil
		}
		return 0, err
	}
	return 1, nil
}

func (s *Tables) Ping(ctx context.Context) error {
	top := int32(1)
	filter := "PartitionKey eq '" + tasksPartition + "'"
	pager := s.taskTable.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter, Top: &top})
	_, err := pager.NextPage(ctx)
	return err
}

// Close is a no-op; the table client holds no connection of its own.
func (s *Tables) Close(ctx context.Context) error { return nil }

func decodeTaskEntity(data []byte) (domain.TaskDocument, error) {
	var ent taskEntity
	if err := sonic.Unmarshal(data, &ent); err != nil {
		return domain.TaskDocument{}, err
	}
	return domain.TaskDocument{
		ID:        ent.RowKey,
		Text:      ent.Text,
		Completed: ent.Completed,
		Order:     ent.Order,
		CreatedAt: ent.CreatedAt,
	}, nil
}

func encodeTaskEntity(doc domain.TaskDocument) ([]byte, error) {
	created, err := domain.ParseCreatedAt(doc.CreatedAt)
	if err != nil {
		return nil, err
	}
	return sonic.Marshal(taskEntity{
		PartitionKey: tasksPartition,
		RowKey:       doc.ID,
		Text:         doc.Text,
		Completed:    doc.Completed,
		Order:        doc.Order,
		OrderType:    edmInt32,
		CreatedAt:    domain.FormatTime(created),
	})
}

func encodeTaskPatch(id string, patch domain.TaskPatch) ([]byte, error) {
	ent := taskPatchEntity{
		PartitionKey: tasksPartition,
		RowKey:       id,
		Text:         patch.Text,
		Completed:    patch.Completed,
		Order:        patch.Order,
	}
	if patch.Order != nil {
		t := edmInt32
		ent.OrderType = &t
	}
	return sonic.Marshal(ent)
}

func isNotFound(err error) bool {
	var respErr *azcore.ResponseError
	return errors.As(err, &respErr) && respErr.StatusCode == http.StatusNotFound
}

// validRowKey rejects ids the table service refuses as row keys.
func validRowKey(id string) bool {
	if id == "" || len(id) > 1024 {
		return false
	}
	if strings.ContainsAny(id, `/\#?`) {
		return false
	}
	for _, r := range id {
		if r < 0x20 || (r >= 0x7f && r <= 0x9f) {
			return false
		}
	}
	return true
}
