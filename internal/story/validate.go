package story

import (
	"errors"
	"fmt"
)

// Validate checks a [Story] for required fields and a consistent timing table.
//
// Rules:
//   - Title must be non-empty.
//   - The story must have at least one page.
//   - Every page must have at least one line.
//   - Page numbers must run 1..N in order.
//   - Every timing span must have EndMS > StartMS, LineCount >= 1, and a line
//     range that stays within the page's lines.
func Validate(st Story) error {
	var errs []error

	if st.Title == "" {
		errs = append(errs, errors.New("title must not be empty"))
	}

	if len(st.Pages) == 0 {
		errs = append(errs, errors.New("story must have at least one page"))
	}

	for i, page := range st.Pages {
		if page.Number != i+1 {
			errs = append(errs, fmt.Errorf("page[%d]: number %d, want %d (pages must run 1..N)", i, page.Number, i+1))
		}
		if len(page.Lines) == 0 {
			errs = append(errs, fmt.Errorf("page[%d]: must have at least one line", i))
		}
		for j, span := range page.Timings {
			if span.EndMS <= span.StartMS {
				errs = append(errs, fmt.Errorf("page[%d]: timing[%d]: end_ms %d not after start_ms %d", i, j, span.EndMS, span.StartMS))
			}
			if span.LineCount < 1 {
				errs = append(errs, fmt.Errorf("page[%d]: timing[%d]: line_count %d < 1", i, j, span.LineCount))
			}
			if span.FirstLine < 0 || span.FirstLine+span.LineCount > len(page.Lines) {
				errs = append(errs, fmt.Errorf("page[%d]: timing[%d]: lines [%d,%d) outside page's %d lines",
					i, j, span.FirstLine, span.FirstLine+span.LineCount, len(page.Lines)))
			}
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return errors.Join(errs...)
}
