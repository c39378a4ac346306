package fissio

import (
	"context"
	"errors"
)

// fakeStore is an in-memory PipelineStore for root package tests. Records
// keep insertion order so List output is deterministic.
type fakeStore struct {
	recs    []PipelineRecord
	listErr error
	saveErr error
}

func (s *fakeStore) Init(context.Context) error { return nil }
func (s *fakeStore) Close() error               { return nil }

func (s *fakeStore) List(context.Context) ([]PipelineRecord, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.recs, nil
}

func (s *fakeStore) Get(_ context.Context, id string) (PipelineRecord, error) {
	for _, r := range s.recs {
		if r.ID == id {
			return r, nil
		}
	}
	return PipelineRecord{}, &ErrNotFound{Kind: "pipeline", ID: id}
}

func (s *fakeStore) Save(_ context.Context, rec PipelineRecord) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	for i, r := range s.recs {
		if r.ID == rec.ID {
			s.recs[i] = rec
			return nil
		}
	}
	s.recs = append(s.recs, rec)
	return nil
}

func (s *fakeStore) Delete(_ context.Context, id string) error {
	for i, r := range s.recs {
		if r.ID == id {
			s.recs = append(s.recs[:i], s.recs[i+1:]...)
			return nil
		}
	}
	return nil
}

var _ PipelineStore = (*fakeStore)(nil)

var errStoreDown = errors.New("store down")
