package actor

import "fmt"

// Kind discriminates who performed an action. Parent actions arrive through
// a consent token and carry no identity of their own.
type Kind string

const (
	KindStaff   Kind = "staff"
	KindStudent Kind = "student"
	KindParent  Kind = "parent"
	KindSystem  Kind = "system"
)

type Actor struct {
	kind Kind
	id   uint
}

func Staff(id uint) Actor   { return Actor{kind: KindStaff, id: id} }
func Student(id uint) Actor { return Actor{kind: KindStudent, id: id} }
func Parent() Actor         { return Actor{kind: KindParent} }
func System() Actor         { return Actor{kind: KindSystem} }

func (a Actor) Kind() Kind { return a.kind }

// ID returns the staff or student id; parent and system actors have none.
func (a Actor) ID() (uint, bool) {
	if a.kind == KindStaff || a.kind == KindStudent {
		return a.id, true
	}
	return 0, false
}

// StaffID returns a nullable staff id for audit rows.
func (a Actor) StaffID() *uint {
	if a.kind == KindStaff {
		id := a.id
		return &id
	}
	return nil
}

func (a Actor) String() string {
	if id, ok := a.ID(); ok {
		return fmt.Sprintf("%s:%d", a.kind, id)
	}
	return string(a.kind)
}
