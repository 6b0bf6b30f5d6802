package application

import "voice-home/internal/domain"

// HandleFire runs the store's fire path directly, as the scheduler does once
// it has released its lock.
func (s *ReminderStore) HandleFire(r domain.Reminder) { s.handleFire(r) }
