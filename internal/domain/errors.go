package domain

import "errors"

// Ошибки workflow. Все операции движка fail-fast: при любой из этих ошибок
// запись остается в исходном состоянии (частичных мутаций не бывает).
var (
	// ErrInvalidTransition — операция вызвана при несовместимом текущем статусе
	// (например, голос рецензента по черновику или по терминальной записи).
	ErrInvalidTransition = errors.New("invalid response status transition")

	// ErrUnauthorized — актор не прошел проверку AccessControlEvaluator.
	ErrUnauthorized = errors.New("actor is not authorized for this operation")

	// ErrDuplicateDecision — рецензент уже голосовал по этому отклику.
	ErrDuplicateDecision = errors.New("reviewer has already recorded a decision")

	// ErrRecordNotFound — отклик или форма не найдены.
	ErrRecordNotFound = errors.New("record not found")

	// ErrVersionConflict — CAS-запись обнаружила конкурентное обновление.
	// Единственная ошибка, которую вызывающий слой может безопасно ретраить.
	ErrVersionConflict = errors.New("concurrent modification detected")

	// ErrInvalidAnswer — ответ не соответствует схеме вопроса
	// (неизвестный вопрос, несовпадение типа, вариант вне списка).
	ErrInvalidAnswer = errors.New("answer does not match question schema")
)
