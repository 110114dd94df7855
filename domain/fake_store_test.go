package domain

import (
	"context"
)

type fakeStore struct {
	docs []TaskDocument

	listErr   error
	getErr    error
	insertErr error
	updateErr map[string]error
	deleteErr error

	updates []string
	lists   int
}

func (f *fakeStore) ListTasks(ctx context.Context) ([]TaskDocument, error) {
	f.lists++
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]TaskDocument, len(f.docs))
	copy(out, f.docs)
	return out, nil
}

func (f *fakeStore) GetTask(ctx context.Context, id string) (*TaskDocument, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	for i := range f.docs {
		if f.docs[i].ID == id {
			d := f.docs[i]
			return &d, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) InsertTask(ctx context.Context, doc TaskDocument) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.docs = append(f.docs, doc)
	return nil
}

func (f *fakeStore) UpdateTask(ctx context.Context, id string, patch TaskPatch) error {
	if err := f.updateErr[id]; err != nil {
		return err
	}
	f.updates = append(f.updates, id)
	for i := range f.docs {
		if f.docs[i].ID != id {
			continue
		}
		if patch.Text != nil {
			f.docs[i].Text = *patch.Text
		}
		if patch.Completed != nil {
			f.docs[i].Completed = *patch.Completed
		}
		if patch.Order != nil {
			f.docs[i].Order = *patch.Order
		}
	}
	return nil
}

func (f *fakeStore) DeleteTask(ctx context.Context, id string) (int64, error) {
	if f.deleteErr != nil {
		return 0, f.deleteErr
	}
	for i := range f.docs {
		if f.docs[i].ID == id {
			f.docs = append(f.docs[:i], f.docs[i+1:]...)
			return 1, nil
		}
	}
	return 0, nil
}

func (f *fakeStore) order(id string) int {
	for _, d := range f.docs {
		if d.ID == id {
			return d.Order
		}
	}
	return -1
}
