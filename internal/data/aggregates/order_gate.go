package aggregates

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/radflow-backend/internal/data/repos"
	domainagg "github.com/yungbote/radflow-backend/internal/domain/aggregates"
	"github.com/yungbote/radflow-backend/internal/platform/dbctx"
)

type OrderGateDeps struct {
	Base       BaseDeps
	Orders     repos.OrderRepo
	Modalities repos.ModalityRepo
	Machines   repos.MachineRepo
}

// OrderValidationGate implements domainagg.OrderValidationGate. Check is the
// in-transaction form used by the ingestion write path.
type OrderValidationGate struct {
	deps OrderGateDeps
}

var _ domainagg.OrderValidationGate = (*OrderValidationGate)(nil)

func NewOrderValidationGate(deps OrderGateDeps) *OrderValidationGate {
	deps.Base = deps.Base.withDefaults()
	return &OrderValidationGate{deps: deps}
}

func (g *OrderValidationGate) Contract() domainagg.Contract {
	return domainagg.OrderValidationGateContract
}

func (g *OrderValidationGate) Validate(ctx context.Context, in domainagg.ValidateOrderInput) (domainagg.ValidateOrderResult, error) {
	const op = "imaging.order_gate.validate"
	var out domainagg.ValidateOrderResult
	err := executeWrite(ctx, g.deps.Base, op, func(dbc dbctx.Context) error {
		res, err := g.Check(dbc, in)
		if err != nil {
			return err
		}
		out = res
		return nil
	})
	if err != nil {
		return domainagg.ValidateOrderResult{}, err
	}
	return out, nil
}

// Check runs the consistency chain against dbc. Each check reports a distinct reason.
func (g *OrderValidationGate) Check(dbc dbctx.Context, in domainagg.ValidateOrderInput) (domainagg.ValidateOrderResult, error) {
	const op = "imaging.order_gate.check"
	if in.OrderID == uuid.Nil || in.MachineID == uuid.Nil || in.PatientID == uuid.Nil {
		return domainagg.ValidateOrderResult{}, domainagg.NewError(domainagg.CodeValidation, op, "order_id, machine_id and patient_id are required", nil)
	}

	order, err := g.deps.Orders.GetByID(dbc, in.OrderID)
	if err != nil {
		return domainagg.ValidateOrderResult{}, err
	}
	if order == nil {
		return domainagg.ValidateOrderResult{}, domainagg.Fail(domainagg.CodeNotFound, op, domainagg.ErrOrderNotFound, in.OrderID.String())
	}

	procedure, err := g.deps.Orders.GetProcedure(dbc, order.ProcedureID)
	if err != nil {
		return domainagg.ValidateOrderResult{}, err
	}
	if procedure == nil {
		return domainagg.ValidateOrderResult{}, domainagg.Fail(domainagg.CodeNotFound, op, domainagg.ErrModalityNotFound, "order procedure missing")
	}
	order.Procedure = procedure

	modality, err := g.deps.Modalities.GetByID(dbc, procedure.ModalityID)
	if err != nil {
		return domainagg.ValidateOrderResult{}, err
	}
	if modality == nil {
		return domainagg.ValidateOrderResult{}, domainagg.Fail(domainagg.CodeNotFound, op, domainagg.ErrModalityNotFound, procedure.ModalityID.String())
	}

	orderModality := strings.ToUpper(strings.TrimSpace(modality.ModalityCode))
	if got := in.Metadata.Modality(); got != orderModality {
		return domainagg.ValidateOrderResult{}, domainagg.Fail(domainagg.CodeMismatch, op, domainagg.ErrModalityMismatch,
			"order expects "+orderModality+", file is "+got)
	}

	machine, err := g.deps.Machines.GetByID(dbc, in.MachineID)
	if err != nil {
		return domainagg.ValidateOrderResult{}, err
	}
	if machine == nil {
		return domainagg.ValidateOrderResult{}, domainagg.Fail(domainagg.CodeNotFound, op, domainagg.ErrMachineNotFound, in.MachineID.String())
	}
	machineModality := ""
	if machine.Modality != nil {
		machineModality = strings.ToUpper(strings.TrimSpace(machine.Modality.ModalityCode))
	}
	if machineModality != orderModality {
		return domainagg.ValidateOrderResult{}, domainagg.Fail(domainagg.CodeMismatch, op, domainagg.ErrMachineModalityMismatch,
			"order expects "+orderModality+", machine is "+machineModality)
	}

	if in.PatientID != order.PatientID {
		return domainagg.ValidateOrderResult{}, domainagg.Fail(domainagg.CodeMismatch, op, domainagg.ErrPatientMismatch, "")
	}

	return domainagg.ValidateOrderResult{
		Order:    order,
		Modality: modality,
		Machine:  machine,
	}, nil
}
