package kb

import (
	"fmt"
	"strings"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/fconil/oso/internal/diag"
	"github.com/fconil/oso/internal/rules"
)

// ValidateRules checks every stored rule against the prototypes registered
// under its name. Prototypes are opt-in per name: a rule whose name has no
// prototype is exempt. A rule must match at least one same-named prototype;
// if none match, the error carries each prototype's rendered form and its
// specific mismatch reason. Call this only after implication rewriting so
// generated has_role/has_permission/has_relation rules are checked too.
//
// Every invalid rule is reported; diag.First recovers the single-error view.
func (kb *KnowledgeBase) ValidateRules() error {
	var errs error
	for _, name := range kb.RuleNames() {
		prototypes, ok := kb.prototypes[name]
		if !ok {
			continue
		}
		group := kb.rules[name]
		for _, idx := range group.Indices() {
			rule := group.Rules[idx]
			if err := kb.validateRule(rule, prototypes); err != nil {
				errs = multierr.Append(errs, err)
			}
		}
	}
	if errs != nil {
		kb.logger.Debug("rule validation failed", zap.Int("errors", len(multierr.Errors(errs))))
	}
	return errs
}

func (kb *KnowledgeBase) validateRule(rule *rules.Rule, prototypes []*rules.Rule) error {
	var msg strings.Builder
	msg.WriteString("Must match one of the following rule prototypes:\n")

	for _, prototype := range prototypes {
		result, err := kb.ruleParamsMatch(rule, prototype)
		if err != nil {
			return err
		}
		if result.ok {
			return nil
		}
		fmt.Fprintf(&msg, "\n%s\n\tFailed to match because: %s\n", prototype.ToPolar(), result.reason)
	}

	verr := &diag.ValidationError{Rule: rule.ToPolar(), Msg: msg.String()}
	if rule.Body.Span != nil {
		verr.SrcID = rule.Body.Span.SrcID
		verr.Loc = rule.Body.Span.Left
	} else if rule.Span != nil {
		verr.SrcID = rule.Span.SrcID
		verr.Loc = rule.Span.Left
	}
	return verr
}
