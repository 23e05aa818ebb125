package dummydb

import (
	"sync"

	"github.com/trezcool/scholarlypay/core/institution"
	"github.com/trezcool/scholarlypay/core/parent"
	"github.com/trezcool/scholarlypay/core/payment"
	"github.com/trezcool/scholarlypay/core/student"
)

type (
	DB struct {
		student     *studentTable
		payment     *paymentTable
		parent      *parentTable
		institution *institutionTable
	}

	studentTable struct {
		sync.RWMutex
		table map[string]*student.Student
	}

	paymentTable struct {
		sync.RWMutex
		table map[string]*payment.Payment
		// references indexes the ledger's idempotency key
		references map[string]string
	}

	parentTable struct {
		sync.RWMutex
		table map[string]*parent.Parent
	}

	institutionTable struct {
		sync.RWMutex
		table map[string]*institution.Institution
	}
)

func Open() (*DB, error) {
	db := &DB{
		student: &studentTable{table: make(map[string]*student.Student)},
		payment: &paymentTable{
			table:      make(map[string]*payment.Payment),
			references: make(map[string]string),
		},
		parent:      &parentTable{table: make(map[string]*parent.Parent)},
		institution: &institutionTable{table: make(map[string]*institution.Institution)},
	}
	return db, nil
}
