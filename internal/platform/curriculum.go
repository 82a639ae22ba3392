package platform

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"lectern/internal/outline"
	"lectern/internal/services"
)

const defaultLeadingSection = "Introduction"

type curriculumPage struct {
	Count   int              `json:"count"`
	Next    *string          `json:"next"`
	Results []curriculumItem `json:"results"`
}

type curriculumItem struct {
	Class     string `json:"_class"`
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	SortOrder *int   `json:"sort_order"`
}

type courseInfo struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url"`
}

// CourseTitle fetches the display title of a course.
func (c *Client) CourseTitle(ctx context.Context, courseID string) (string, error) {
	endpoint := c.baseURL.JoinPath("courses", courseID, "/")
	endpoint.RawQuery = url.Values{"fields[course]": {"title,url"}}.Encode()
	var info courseInfo
	if err := c.getJSON(ctx, "course", endpoint.String(), &info); err != nil {
		return "", err
	}
	return strings.TrimSpace(info.Title), nil
}

// Curriculum pages through the course's curriculum items until the listing
// reports no next page and assembles the outline. Chapters become sections;
// lectures before the first chapter form a leading section named after the
// course, or "Introduction" when the title is unknown. Items other than
// chapters and lectures (quizzes, practice tests) are ignored.
func (c *Client) Curriculum(ctx context.Context, courseID string) (*outline.Outline, error) {
	courseID = strings.TrimSpace(courseID)
	if courseID == "" {
		return nil, services.Wrap(services.ErrValidation, "platform", "curriculum", "course id is required", outline.ErrNoCourseContext)
	}

	// Title lookup failures are not fatal.
	title, err := c.CourseTitle(ctx, courseID)
	if err != nil {
		title = ""
	}

	var items []curriculumItem
	for page := 1; ; page++ {
		endpoint := c.baseURL.JoinPath("courses", courseID, "subscriber-curriculum-items", "/")
		endpoint.RawQuery = url.Values{
			"page_size":       {strconv.Itoa(c.pageSize)},
			"page":            {strconv.Itoa(page)},
			"fields[lecture]": {"title,sort_order,asset"},
			"fields[chapter]": {"title,sort_order"},
		}.Encode()

		var payload curriculumPage
		if err := c.getJSON(ctx, "curriculum", endpoint.String(), &payload); err != nil {
			return nil, err
		}
		items = append(items, payload.Results...)
		if payload.Next == nil || strings.TrimSpace(*payload.Next) == "" || len(payload.Results) == 0 {
			break
		}
	}

	result := buildOutline(courseID, title, items)
	if err := result.Validate(); err != nil {
		return nil, fmt.Errorf("course %s: %w", courseID, err)
	}
	return result, nil
}

func buildOutline(courseID, title string, items []curriculumItem) *outline.Outline {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i].SortOrder, items[j].SortOrder
		if a == nil || b == nil {
			return false
		}
		return *a < *b
	})

	result := &outline.Outline{Title: title, CourseID: courseID}
	var current *outline.Section
	for _, item := range items {
		switch strings.ToLower(item.Class) {
		case "chapter":
			result.Sections = append(result.Sections, outline.Section{Title: strings.TrimSpace(item.Title)})
			current = &result.Sections[len(result.Sections)-1]
		case "lecture":
			if current == nil {
				leading := title
				if leading == "" {
					leading = defaultLeadingSection
				}
				result.Sections = append(result.Sections, outline.Section{Title: leading})
				current = &result.Sections[len(result.Sections)-1]
			}
			current.Lectures = append(current.Lectures, outline.Lecture{
				Title: strings.TrimSpace(item.Title),
				ID:    strconv.FormatInt(item.ID, 10),
			})
		}
	}
	return result
}
