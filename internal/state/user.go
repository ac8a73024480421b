package state

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/p-blackswan/taskboard/internal/models"
	"github.com/p-blackswan/taskboard/internal/repository"
)

// UserState is the workspace member list.
type UserState struct {
	Members []models.Member `json:"members" yaml:"members"`
	Loading bool            `json:"loading" yaml:"loading"`
	Error   string          `json:"error" yaml:"error"`
}

func cloneUserState(s UserState) UserState {
	if s.Members != nil {
		out := make([]models.Member, len(s.Members))
		for i, m := range s.Members {
			out[i] = m.Clone()
		}
		s.Members = out
	}
	return s
}

// UserStore owns the member list.
type UserStore struct {
	*container[UserState]
	api     MemberAPI
	actions ActionRecorder
	logger  zerolog.Logger
}

// NewUserStore creates an empty UserStore. actions may be nil.
func NewUserStore(api MemberAPI, actions ActionRecorder, logger zerolog.Logger) *UserStore {
	return &UserStore{
		container: newContainer(UserState{}, cloneUserState),
		api:       api,
		actions:   actions,
		logger:    logger.With().Str("component", "user_store").Logger(),
	}
}

// State returns a copy of the member list state.
func (s *UserStore) State() UserState { return s.get() }

// Subscribe registers fn to receive the state after every commit.
func (s *UserStore) Subscribe(fn func(UserState)) (unsubscribe func()) {
	return s.subs.add(fn)
}

// FetchMembers replaces the member list with the server's.
func (s *UserStore) FetchMembers(ctx context.Context) (err error) {
	defer func() { record(s.actions, "user", "fetch", err) }()

	s.commit(func(st *UserState) {
		st.Loading = true
		st.Error = ""
	})

	members, err := s.api.ListMembers(ctx)
	if err != nil {
		msg := repository.Message(repository.OpListMembers, err)
		s.logger.Debug().Msg(msg)
		s.commit(func(st *UserState) {
			st.Loading = false
			st.Error = msg
		})
		return err
	}

	if members == nil {
		members = []models.Member{}
	}
	s.commit(func(st *UserState) {
		st.Members = members
		st.Loading = false
		st.Error = ""
	})
	return nil
}
