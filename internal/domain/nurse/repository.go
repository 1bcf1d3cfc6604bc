package nurse

import "context"

type NurseRepository interface {
	GetByID(ctx context.Context, id string) (Nurse, error)
}
