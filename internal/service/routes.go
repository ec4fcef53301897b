// Package service implements the Connect RPC handlers for SmartBill.
package service

import (
	"net/http"

	"connectrpc.com/connect"

	"github.com/smartbill/smartbill/internal/rpc"
)

// Services bundles every RPC service the server exposes.
type Services struct {
	Auth     *AuthService
	Expenses *ExpenseService
	Contacts *ContactService
	Splits   *SplitService
}

// RegisterRoutes mounts all procedures on mux. publicOpts apply to the auth
// endpoints; protectedOpts (which should include the auth interceptor) apply
// to everything else.
func RegisterRoutes(mux *http.ServeMux, svcs Services, publicOpts, protectedOpts []connect.HandlerOption) {
	rpc.Handle(mux, rpc.AuthRegister, svcs.Auth.Register, publicOpts...)
	rpc.Handle(mux, rpc.AuthLogin, svcs.Auth.Login, publicOpts...)

	rpc.Handle(mux, rpc.ExpenseParseReceipt, svcs.Expenses.ParseReceipt, protectedOpts...)
	rpc.Handle(mux, rpc.ExpenseCreate, svcs.Expenses.CreateExpense, protectedOpts...)
	rpc.Handle(mux, rpc.ExpenseGet, svcs.Expenses.GetExpense, protectedOpts...)
	rpc.Handle(mux, rpc.ExpenseList, svcs.Expenses.ListExpenses, protectedOpts...)
	rpc.Handle(mux, rpc.ExpenseDelete, svcs.Expenses.DeleteExpense, protectedOpts...)

	rpc.Handle(mux, rpc.ContactAdd, svcs.Contacts.AddContact, protectedOpts...)
	rpc.Handle(mux, rpc.ContactList, svcs.Contacts.ListContacts, protectedOpts...)
	rpc.Handle(mux, rpc.ContactUpdate, svcs.Contacts.UpdateContact, protectedOpts...)
	rpc.Handle(mux, rpc.ContactDelete, svcs.Contacts.DeleteContact, protectedOpts...)
	rpc.Handle(mux, rpc.ContactGroupCreate, svcs.Contacts.CreateGroup, protectedOpts...)
	rpc.Handle(mux, rpc.ContactGroupList, svcs.Contacts.ListGroups, protectedOpts...)
	rpc.Handle(mux, rpc.ContactGroupDelete, svcs.Contacts.DeleteGroup, protectedOpts...)

	rpc.Handle(mux, rpc.SplitPreview, svcs.Splits.PreviewSplit, protectedOpts...)
	rpc.Handle(mux, rpc.SplitSendBills, svcs.Splits.SendBills, protectedOpts...)
	rpc.Handle(mux, rpc.SplitList, svcs.Splits.ListSplits, protectedOpts...)
}
