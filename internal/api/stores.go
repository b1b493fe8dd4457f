package api

import (
	"net/http"
)

type storeResponse struct {
	Name        string   `json:"name"`
	Driver      string   `json:"driver"`
	Description string   `json:"description"`
	DependsOn   string   `json:"depends_on,omitempty"`
	EntryPoint  bool     `json:"entry_point"`
	Tables      []string `json:"tables,omitempty"`
	Schema      string   `json:"schema"`
}

func handleListStores(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Agent == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "CHAT_NOT_CONFIGURED", "agent is not configured", false, nil)
		return
	}
	defs := deps.Agent.Definitions()
	out := make([]storeResponse, 0, len(defs))
	for _, def := range defs {
		out = append(out, storeResponse{
			Name:        def.Name,
			Driver:      def.Driver,
			Description: def.Description,
			DependsOn:   def.DependsOn,
			EntryPoint:  def.EntryPoint,
			Tables:      def.Tables,
			Schema:      deps.Agent.Schema(def.Name),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"stores": out})
}
