package api

import (
	"net/http"
	"strconv"

	echo "github.com/labstack/echo/v5"

	"github.com/archon-core/archon/pkg/documents"
)

// SourceDTO is one entry in a document listing.
type SourceDTO struct {
	ID               string `json:"id"`
	DisplayName      string `json:"display_name"`
	Origin           string `json:"origin"`
	KnowledgeType    string `json:"knowledge_type"`
	ProjectID        string `json:"project_id,omitempty"`
	IsProjectPrivate bool   `json:"is_project_private"`
	ChunksStored     int    `json:"chunks_stored"`
}

// listProjectDocumentsHandler handles GET /api/projects/:project_id/documents.
func (s *Server) listProjectDocumentsHandler(c *echo.Context) error {
	projectID := c.Param("project_id")
	if err := s.requirePermission(c, "knowledge", "knowledge:read", projectID); err != nil {
		return err
	}

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))

	sources, err := s.documents.List(c.Request().Context(), documents.ListParams{
		ProjectID:      &projectID,
		IncludePrivate: true,
		Limit:          limit,
		Offset:         offset,
	})
	if err != nil {
		return mapServiceError(err)
	}

	out := make([]SourceDTO, len(sources))
	for i, src := range sources {
		dto := SourceDTO{
			ID: src.ID, DisplayName: src.DisplayName, Origin: src.Origin,
			KnowledgeType: string(src.KnowledgeType), IsProjectPrivate: src.IsProjectPrivate,
			ChunksStored: src.ChunksStored,
		}
		if src.ProjectID != nil {
			dto.ProjectID = *src.ProjectID
		}
		out[i] = dto
	}
	return c.JSON(http.StatusOK, out)
}

// promoteDocumentHandler handles POST /api/documents/:source_id/promote.
func (s *Server) promoteDocumentHandler(c *echo.Context) error {
	if err := s.requirePermission(c, "knowledge", "knowledge:promote", "*"); err != nil {
		return err
	}
	subj := subjectFrom(c)
	if err := s.documents.Promote(c.Request().Context(), c.Param("source_id"), subj.ID); err != nil {
		return mapServiceError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// deleteProjectDocumentHandler handles
// DELETE /api/projects/:project_id/documents/:source_id.
func (s *Server) deleteProjectDocumentHandler(c *echo.Context) error {
	projectID := c.Param("project_id")
	if err := s.requirePermission(c, "knowledge", "knowledge:write", projectID); err != nil {
		return err
	}
	if err := s.documents.Delete(c.Request().Context(), projectID, c.Param("source_id")); err != nil {
		return mapServiceError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
