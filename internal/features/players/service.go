// Package players — service.go содержит проверки доступа игрока к игре.
package players

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/puzzle-arena/internal/common"
)

// Source — чтение игрока.
type Source interface {
	Get(ctx context.Context, id int64) (*Player, error)
}

// Service проверяет, может ли игрок играть.
type Service struct {
	repo Source
}

func NewService(repo Source) *Service {
	return &Service{repo: repo}
}

// Playable возвращает игрока, если он существует и не заблокирован.
// Ошибки: common.ErrPlayerNotFound, common.ErrPlayerBanned.
func (s *Service) Playable(ctx context.Context, id int64) (*Player, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.IsBanned {
		log.WithFields(log.Fields{
			"player_id": id,
			"username":  p.Username,
		}).Info("Заблокированный игрок пытается подключиться")
		return nil, fmt.Errorf("%s: %w", p.DisplayName(), common.ErrPlayerBanned)
	}
	return p, nil
}
