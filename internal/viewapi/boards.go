package viewapi

import (
	"sync"

	"github.com/p-blackswan/taskboard/internal/state"
)

// boardRegistry keeps one TaskBoard per project page currently open.
type boardRegistry struct {
	mu     sync.Mutex
	boards map[string]*state.TaskBoard
	build  func(projectID string) *state.TaskBoard
}

func newBoardRegistry(build func(string) *state.TaskBoard) *boardRegistry {
	return &boardRegistry{boards: make(map[string]*state.TaskBoard), build: build}
}

// open returns the board for projectID, creating it on first use.
func (r *boardRegistry) open(projectID string) (*state.TaskBoard, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.boards[projectID]; ok {
		return b, false
	}
	b := r.build(projectID)
	r.boards[projectID] = b
	return b, true
}

// close closes and forgets the board for projectID.
func (r *boardRegistry) close(projectID string) {
	r.mu.Lock()
	b, ok := r.boards[projectID]
	delete(r.boards, projectID)
	r.mu.Unlock()
	if ok {
		b.Close()
	}
}

func (r *boardRegistry) closeAll() {
	r.mu.Lock()
	boards := r.boards
	r.boards = make(map[string]*state.TaskBoard)
	r.mu.Unlock()
	for _, b := range boards {
		b.Close()
	}
}
