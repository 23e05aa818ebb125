package student_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/scholarlypay/core"
	"github.com/trezcool/scholarlypay/core/payment"
	"github.com/trezcool/scholarlypay/core/student"
	dummydb "github.com/trezcool/scholarlypay/storage/database/dummy"
)

func setup(t *testing.T) *student.Service {
	t.Helper()
	db, err := dummydb.Open()
	require.NoError(t, err)
	conf := &core.Config{Currency: "KES"}
	return student.NewService(dummydb.NewStudentRepository(db), conf)
}

func TestService_Create_statusDerivation(t *testing.T) {
	tests := []struct {
		name string
		data student.NewStudent
		want student.Status
	}{
		{
			name: "no payment yet is pending",
			data: student.NewStudent{Name: "A", AdmissionNumber: "AD-1", Grade: "1", TotalFees: 30000},
			want: student.StatusPending,
		},
		{
			name: "partial payment has balance",
			data: student.NewStudent{Name: "B", AdmissionNumber: "AD-2", Grade: "1", TotalFees: 30000, PaidAmount: 10000},
			want: student.StatusBalance,
		},
		{
			name: "full payment is paid",
			data: student.NewStudent{Name: "C", AdmissionNumber: "AD-3", Grade: "1", TotalFees: 30000, PaidAmount: 30000},
			want: student.StatusPaid,
		},
	}

	svc := setup(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, err := svc.Create(context.Background(), tt.data)
			require.NoError(t, err)
			assert.Equal(t, tt.want, st.Status)
			assert.NotEmpty(t, st.ID)
			assert.False(t, st.CreatedAt.IsZero())
		})
	}
}

func TestService_Update_feeChangeRederivesStatus(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()

	st, err := svc.Create(ctx, student.NewStudent{
		Name: "Jane", AdmissionNumber: "AD-10", Grade: "4", TotalFees: 30000, PaidAmount: 30000,
	})
	require.NoError(t, err)
	require.Equal(t, student.StatusPaid, st.Status)

	// raising the fees moves the goalposts
	newTotal := int64(40000)
	st, err = svc.Update(ctx, st.ID, student.UpdateStudent{
		Name: st.Name, Grade: st.Grade, TotalFees: &newTotal,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(40000), st.TotalFees)
	assert.Equal(t, student.StatusBalance, st.Status)

	// a pending student stays pending until money moves
	pending, err := svc.Create(ctx, student.NewStudent{
		Name: "Ken", AdmissionNumber: "AD-11", Grade: "4", TotalFees: 30000,
	})
	require.NoError(t, err)
	pending, err = svc.Update(ctx, pending.ID, student.UpdateStudent{
		Name: pending.Name, Grade: pending.Grade, TotalFees: &newTotal,
	})
	require.NoError(t, err)
	assert.Equal(t, student.StatusPending, pending.Status)
}

func TestService_RecordManualPayment(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()

	st, err := svc.Create(ctx, student.NewStudent{
		Name: "Jane", AdmissionNumber: "AD-20", Grade: "4",
		ParentEmail: "parent@test.cd", TotalFees: 30000, PaidAmount: 10000,
	})
	require.NoError(t, err)

	updated, pmt, err := svc.RecordManualPayment(ctx, st.ID, student.PaymentEntry{Amount: 20000})
	require.NoError(t, err)

	assert.Equal(t, int64(30000), updated.PaidAmount)
	assert.Equal(t, student.StatusPaid, updated.Status)

	// defaults
	assert.True(t, strings.HasPrefix(pmt.Reference, "MAN-"), "reference = %q", pmt.Reference)
	assert.Equal(t, "manual", pmt.Method)
	assert.Equal(t, "parent@test.cd", pmt.Email)
	assert.Equal(t, "KES", pmt.Currency)
	assert.Equal(t, payment.StatusSuccess, pmt.Status)
	assert.Equal(t, st.AdmissionNumber, pmt.AdmissionNumber)
}

func TestService_RecordManualPayment_duplicateReference(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()

	st, err := svc.Create(ctx, student.NewStudent{
		Name: "Jane", AdmissionNumber: "AD-30", Grade: "4", TotalFees: 30000,
	})
	require.NoError(t, err)

	entry := student.PaymentEntry{Amount: 5000, Reference: "BANK-001"}
	_, _, err = svc.RecordManualPayment(ctx, st.ID, entry)
	require.NoError(t, err)

	_, _, err = svc.RecordManualPayment(ctx, st.ID, entry)
	assert.Equal(t, payment.ErrDuplicateReference, err)

	// single increment
	got, err := svc.GetByID(ctx, st.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(5000), got.PaidAmount)
}

func TestService_RecordManualPayment_unknownStudent(t *testing.T) {
	svc := setup(t)
	_, _, err := svc.RecordManualPayment(context.Background(), "nope", student.PaymentEntry{Amount: 100})
	assert.Equal(t, student.ErrNotFound, err)
}

func TestService_Summary(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, student.NewStudent{
		Name: "A", AdmissionNumber: "AD-40", Grade: "1", TotalFees: 30000, PaidAmount: 30000,
	})
	require.NoError(t, err)
	_, err = svc.Create(ctx, student.NewStudent{
		Name: "B", AdmissionNumber: "AD-41", Grade: "1", TotalFees: 50000, PaidAmount: 20000,
	})
	require.NoError(t, err)
	_, err = svc.Create(ctx, student.NewStudent{
		Name: "C", AdmissionNumber: "AD-42", Grade: "2", TotalFees: 10000,
	})
	require.NoError(t, err)

	sum, err := svc.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(50000), sum.TotalCollected)
	assert.Equal(t, int64(40000), sum.TotalOutstanding)
	assert.Equal(t, 3, sum.StudentCount)
	assert.Equal(t, 2, sum.OwingCount)
}
