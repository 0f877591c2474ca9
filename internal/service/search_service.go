package service

import (
	"fmt"
	"html"
	"log"
	"strings"

	"github.com/arisehq/levelup/internal/dto"
	"github.com/arisehq/levelup/internal/model"
	"github.com/google/uuid"
	"github.com/meilisearch/meilisearch-go"
	"github.com/microcosm-cc/bluemonday"
)

// SearchService mirrors goal/habit titles into Meilisearch so the client can
// offer instant search. Indexing is best effort: a failed index write is
// logged, never propagated into the request that triggered it.
type SearchService interface {
	IndexGoal(goal *model.Goal) error
	IndexHabit(habit *model.Habit) error
	DeleteGoal(id string) error
	DeleteHabit(id string) error
	Search(userID uuid.UUID, query string) ([]dto.SearchHit, error)
}

type searchService struct {
	client    meilisearch.ServiceManager
	sanitizer *bluemonday.Policy
}

func NewSearchService(client meilisearch.ServiceManager) SearchService {
	s := &searchService{
		client:    client,
		sanitizer: bluemonday.StrictPolicy(),
	}
	s.initIndexes()
	return s
}

func (s *searchService) initIndexes() {
	for _, index := range []string{"goals", "habits"} {
		filterable := []any{"user_id"}
		if _, err := s.client.Index(index).UpdateFilterableAttributes(&filterable); err != nil {
			log.Printf("Failed to update %s filterable attributes: %v", index, err)
		}

		sortable := []string{"created_at"}
		if _, err := s.client.Index(index).UpdateSortableAttributes(&sortable); err != nil {
			log.Printf("Failed to update %s sortable attributes: %v", index, err)
		}
	}
}

type meiliGoalDoc struct {
	ID          string `json:"id"`
	UserID      string `json:"user_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Status      string `json:"status"`
	CreatedAt   int64  `json:"created_at"`
}

type meiliHabitDoc struct {
	ID          string `json:"id"`
	UserID      string `json:"user_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	CreatedAt   int64  `json:"created_at"`
}

func (s *searchService) cleanForIndex(content string) string {
	sanitized := s.sanitizer.Sanitize(content)
	cleanText := html.UnescapeString(sanitized)
	return strings.Join(strings.Fields(cleanText), " ")
}

func (s *searchService) IndexGoal(goal *model.Goal) error {
	doc := meiliGoalDoc{
		ID:        goal.ID.String(),
		UserID:    goal.UserID.String(),
		Title:     s.cleanForIndex(goal.Title),
		Status:    goal.Status,
		CreatedAt: goal.CreatedAt.Unix(),
	}
	if goal.Description != nil {
		doc.Description = s.cleanForIndex(*goal.Description)
	}
	if goal.Category != nil {
		doc.Category = *goal.Category
	}

	_, err := s.client.Index("goals").AddDocuments([]meiliGoalDoc{doc}, strPtr("id"))
	return err
}

func (s *searchService) IndexHabit(habit *model.Habit) error {
	doc := meiliHabitDoc{
		ID:        habit.ID.String(),
		UserID:    habit.UserID.String(),
		Title:     s.cleanForIndex(habit.Title),
		Category:  habit.Category,
		CreatedAt: habit.CreatedAt.Unix(),
	}
	if habit.Description != nil {
		doc.Description = s.cleanForIndex(*habit.Description)
	}

	_, err := s.client.Index("habits").AddDocuments([]meiliHabitDoc{doc}, strPtr("id"))
	return err
}

func (s *searchService) DeleteGoal(id string) error {
	_, err := s.client.Index("goals").DeleteDocument(id)
	return err
}

func (s *searchService) DeleteHabit(id string) error {
	_, err := s.client.Index("habits").DeleteDocument(id)
	return err
}

func (s *searchService) Search(userID uuid.UUID, query string) ([]dto.SearchHit, error) {
	filter := fmt.Sprintf("user_id = %q", userID.String())
	var hits []dto.SearchHit

	goalRes, err := s.client.Index("goals").Search(query, &meilisearch.SearchRequest{
		Filter: filter,
		Limit:  20,
	})
	if err != nil {
		return nil, err
	}
	for _, hit := range goalRes.Hits {
		var doc meiliGoalDoc
		if err := hit.Decode(&doc); err != nil {
			log.Printf("Failed to decode goal search hit: %v", err)
			continue
		}
		hits = append(hits, dto.SearchHit{
			ID:       doc.ID,
			Kind:     "goal",
			Title:    doc.Title,
			Category: doc.Category,
			Status:   doc.Status,
		})
	}

	habitRes, err := s.client.Index("habits").Search(query, &meilisearch.SearchRequest{
		Filter: filter,
		Limit:  20,
	})
	if err != nil {
		return nil, err
	}
	for _, hit := range habitRes.Hits {
		var doc meiliHabitDoc
		if err := hit.Decode(&doc); err != nil {
			log.Printf("Failed to decode habit search hit: %v", err)
			continue
		}
		hits = append(hits, dto.SearchHit{
			ID:       doc.ID,
			Kind:     "habit",
			Title:    doc.Title,
			Category: doc.Category,
		})
	}

	return hits, nil
}

func strPtr(s string) *string {
	return &s
}
