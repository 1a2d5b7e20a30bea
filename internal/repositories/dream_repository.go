package repositories

import (
	"context"
	"errors"
	"time"

	"dreamweaver_backend/internal/models"
	"dreamweaver_backend/internal/store"
)

var ErrDreamNotFound = errors.New("dream not found")

type DreamRepository interface {
	// ListForUser - сны в порядке хранения (новые первыми)
	ListForUser(ctx context.Context, userID string) ([]models.Dream, error)
	CreateDream(ctx context.Context, userID, text string, mood models.DreamMood, analysis *models.DreamAnalysis) (*models.Dream, error)
	// CreateDreamIf вызывает guard с текущей коллекцией под блокировкой пользователя;
	// ошибка guard возвращается как есть, сон не создается.
	CreateDreamIf(ctx context.Context, userID, text string, mood models.DreamMood, analysis *models.DreamAnalysis, guard func([]models.Dream) error) (*models.Dream, error)
	Get(ctx context.Context, userID, dreamID string) (*models.Dream, error)
	// AppendChatMessage возвращает nil без ошибки, если сна с таким id нет
	AppendChatMessage(ctx context.Context, userID, dreamID string, msg models.ChatMessage) (*models.Dream, error)
	// SetArt - та же политика тихого промаха
	SetArt(ctx context.Context, userID, dreamID, url, thumbnailURL string) (*models.Dream, error)
}

type DreamRepositoryImpl struct {
	store store.Store
	keys  store.Keys
	locks *keyedMutex
	now   func() time.Time
}

func NewDreamRepository(s store.Store, keys store.Keys, now func() time.Time) DreamRepository {
	if now == nil {
		now = time.Now
	}
	return &DreamRepositoryImpl{store: s, keys: keys, locks: newKeyedMutex(), now: now}
}

func (r *DreamRepositoryImpl) load(ctx context.Context, userID string) ([]models.Dream, error) {
	var dreams []models.Dream
	if _, err := store.GetJSON(ctx, r.store, r.keys.Dreams(userID), &dreams); err != nil {
		return nil, err
	}
	return dreams, nil
}

func (r *DreamRepositoryImpl) save(ctx context.Context, userID string, dreams []models.Dream) error {
	return store.SetJSON(ctx, r.store, r.keys.Dreams(userID), dreams)
}

func (r *DreamRepositoryImpl) ListForUser(ctx context.Context, userID string) ([]models.Dream, error) {
	dreams, err := r.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if dreams == nil {
		dreams = []models.Dream{}
	}
	return dreams, nil
}

func (r *DreamRepositoryImpl) CreateDream(ctx context.Context, userID, text string, mood models.DreamMood, analysis *models.DreamAnalysis) (*models.Dream, error) {
	return r.CreateDreamIf(ctx, userID, text, mood, analysis, nil)
}

func (r *DreamRepositoryImpl) CreateDreamIf(ctx context.Context, userID, text string, mood models.DreamMood, analysis *models.DreamAnalysis, guard func([]models.Dream) error) (*models.Dream, error) {
	unlock := r.locks.Lock(userID)
	defer unlock()

	dreams, err := r.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if guard != nil {
		if err := guard(dreams); err != nil {
			return nil, err
		}
	}

	created := r.now().UTC()
	// id - первичный ключ: при совпадении момента сдвигаем на наносекунду
	if len(dreams) > 0 {
		if last, ok := dreams[0].CreatedAt(); ok && !created.After(last) {
			created = last.Add(time.Nanosecond)
		}
	}

	dream := models.Dream{
		ID:        created.Format(models.DreamIDLayout),
		UserID:    userID,
		Text:      text,
		Mood:      mood,
		Timestamp: created.In(r.now().Location()).Format(models.TimestampLayout),
		Analysis:  analysis,
	}

	dreams = append([]models.Dream{dream}, dreams...)
	if err := r.save(ctx, userID, dreams); err != nil {
		return nil, err
	}
	return &dream, nil
}

func (r *DreamRepositoryImpl) Get(ctx context.Context, userID, dreamID string) (*models.Dream, error) {
	dreams, err := r.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range dreams {
		if dreams[i].ID == dreamID {
			return &dreams[i], nil
		}
	}
	return nil, ErrDreamNotFound
}

func (r *DreamRepositoryImpl) AppendChatMessage(ctx context.Context, userID, dreamID string, msg models.ChatMessage) (*models.Dream, error) {
	return r.mutate(ctx, userID, dreamID, func(d *models.Dream) {
		d.ChatHistory = append(d.ChatHistory, msg)
	})
}

func (r *DreamRepositoryImpl) SetArt(ctx context.Context, userID, dreamID, url, thumbnailURL string) (*models.Dream, error) {
	return r.mutate(ctx, userID, dreamID, func(d *models.Dream) {
		d.ArtURL = url
		d.ThumbnailURL = thumbnailURL
	})
}

// mutate - read-modify-write всей коллекции; неизвестный id не пишет ничего
func (r *DreamRepositoryImpl) mutate(ctx context.Context, userID, dreamID string, fn func(*models.Dream)) (*models.Dream, error) {
	unlock := r.locks.Lock(userID)
	defer unlock()

	dreams, err := r.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range dreams {
		if dreams[i].ID != dreamID {
			continue
		}
		fn(&dreams[i])
		if err := r.save(ctx, userID, dreams); err != nil {
			return nil, err
		}
		updated := dreams[i]
		return &updated, nil
	}
	return nil, nil
}
