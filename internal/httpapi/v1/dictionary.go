package v1

import (
	"net/http"

	"github.com/sehyunkim/finbook/internal/finance"
)

// Dictionary endpoints expose the enumerations clients need to build forms.

type dictionaryItem struct {
	Code string `json:"code"`
	Name string `json:"name,omitempty"`
}

type dictionaryResponse struct {
	Items []dictionaryItem `json:"items"`
}

var bankNames = map[finance.BankCode]string{
	finance.BankIBK:     "IBK",
	finance.BankKB:      "KB",
	finance.BankNH:      "NH",
	finance.BankWoori:   "WOORI",
	finance.BankHana:    "HANA",
	finance.BankShinhan: "SHINHAN",
	finance.BankKakao:   "KAKAOBANK",
	finance.BankToss:    "TOSSBANK",
}

// GET /v1/dictionary/banks
func (s *Server) getBanksDictionary(w http.ResponseWriter, r *http.Request) {
	codes := []finance.BankCode{
		finance.BankIBK, finance.BankKB, finance.BankNH, finance.BankWoori,
		finance.BankHana, finance.BankShinhan, finance.BankKakao, finance.BankToss,
	}
	out := dictionaryResponse{Items: make([]dictionaryItem, 0, len(codes))}
	for _, c := range codes {
		out.Items = append(out.Items, dictionaryItem{Code: string(c), Name: bankNames[c]})
	}
	toJSON(w, http.StatusOK, out)
}

// GET /v1/dictionary/categories
func (s *Server) getCategoriesDictionary(w http.ResponseWriter, r *http.Request) {
	cats := []finance.Category{
		finance.CategoryFood, finance.CategoryTransportation, finance.CategoryShopping,
		finance.CategoryHousing, finance.CategoryUtilities, finance.CategoryEntertainment,
		finance.CategoryHealth, finance.CategoryEducation, finance.CategoryFinance,
		finance.CategoryOther, finance.CategoryIncome,
	}
	out := dictionaryResponse{Items: make([]dictionaryItem, 0, len(cats))}
	for _, c := range cats {
		out.Items = append(out.Items, dictionaryItem{Code: string(c)})
	}
	toJSON(w, http.StatusOK, out)
}

// GET /v1/dictionary/methods
func (s *Server) getMethodsDictionary(w http.ResponseWriter, r *http.Request) {
	methods := []finance.TransactionMethod{
		finance.MethodTransfer, finance.MethodCard, finance.MethodCash, finance.MethodEtc,
	}
	out := dictionaryResponse{Items: make([]dictionaryItem, 0, len(methods))}
	for _, m := range methods {
		out.Items = append(out.Items, dictionaryItem{Code: string(m)})
	}
	toJSON(w, http.StatusOK, out)
}
