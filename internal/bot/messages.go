package bot

import (
	"fmt"
	"sort"
	"strings"

	"wheres-my-lunch/internal/session"
	"wheres-my-lunch/internal/week"
	"wheres-my-lunch/pkg/models"
)

// Button captions double as routing keys for reply-keyboard presses.
const (
	ButtonNewOrder = "📝 Новый заказ"
	ButtonMyOrders = "📋 Мои заказы"
	ButtonExport   = "📊 Выгрузить Excel"
)

// Inline action tokens for the confirmation keyboard.
const (
	TokenConfirmYes = "confirm_yes"
	TokenConfirmNo  = "confirm_no"
	TokenCancel     = "cancel"
)

func greetingText(firstName, weekRange string, label week.Label, status week.Status) string {
	return fmt.Sprintf(
		"👋 *Добрый день, %s!*\n\n"+
			"🍽️ *Система заказа обедов для инструкторов*\n\n"+
			"📅 *Текущий период заказа:* `%s`\n"+
			"└ %s\n"+
			"%s\n\n"+
			"📝 *Что нужно делать:*\n"+
			"• Нажать «%s»\n"+
			"• Ввести ФИО инструктора\n"+
			"• На каждый день ввести *0*, *1* или *2*\n"+
			"• Проверить и подтвердить заказ\n\n"+
			"👇 *Нажмите кнопку «%s» чтобы начать*",
		firstName, weekRange, labelText(label), statusText(status), ButtonNewOrder, ButtonNewOrder)
}

func labelText(label week.Label) string {
	if label == week.WeekAfter {
		return "через неделю"
	}
	return "следующую неделю"
}

func statusText(s week.Status) string {
	switch {
	case s.Passed:
		return "🔓 Приём заказов на неделю через одну"
	case s.OnDeadlineDay:
		return fmt.Sprintf("⏳ Сегодня до 16:00 (осталось %d ч %d мин)", s.HoursLeft, s.MinutesLeft)
	case s.DaysLeft == 1:
		return "⏳ Дедлайн: завтра до 16:00"
	default:
		return fmt.Sprintf("⏳ Дедлайн: пятница 16:00 (осталось %d дн.)", s.DaysLeft)
	}
}

func orderIntroText(weekRange string, label week.Label) string {
	return fmt.Sprintf(
		"📝 *Оформление нового заказа*\n\n"+
			"📅 *Период заказа:* `%s`\n"+
			"└ %s\n\n"+
			"👤 *Шаг 1 из 8:* Введите ФИО инструктора\n"+
			"└ Пример: *Иванов Иван Иванович*\n\n"+
			"✏️ Напишите ФИО в ответном сообщении:",
		weekRange, labelText(label))
}

const instructorTooShortText = "❌ *Слишком короткое ФИО*\n\n" +
	"Пожалуйста, введите полное ФИО:\n" +
	"└ Пример: *Иванов Иван Иванович*"

func dayPromptText(instructor, weekRange string, dayIndex int, day week.DayFormats) string {
	return fmt.Sprintf(
		"👤 *Инструктор:* %s\n"+
			"📅 *Период:* %s\n\n"+
			"📝 *Шаг %d из 8*\n"+
			"📅 *День %d: %s* (%s)\n\n"+
			"🍽️ *Сколько обедов заказать на этот день?*\n\n"+
			"└ Введите *0* — не заказывать\n"+
			"└ Введите *1* — один обед\n"+
			"└ Введите *2* — два обеда\n\n"+
			"✏️ Напишите цифру (0, 1 или 2):",
		instructor, weekRange, dayIndex+2, dayIndex+1, day.DayName, day.Display)
}

const invalidQuantityText = "❌ *Неверный ввод*\n\n" +
	"Пожалуйста, введите только *0*, *1* или *2*:\n" +
	"└ 0 — не заказывать\n" +
	"└ 1 — один обед\n" +
	"└ 2 — два обеда"

func dayRecordedText(day week.DayFormats, qty int) string {
	switch qty {
	case 0:
		return fmt.Sprintf("❌ *Не заказываем* обеды на %s (%s)", day.DayName, day.Short)
	case 1:
		return fmt.Sprintf("✅ *1 обед* на %s (%s)", day.DayName, day.Short)
	default:
		return fmt.Sprintf("✅ *%d обеда* на %s (%s)", qty, day.DayName, day.Short)
	}
}

func summaryText(s *session.OrderSession) string {
	var b strings.Builder
	fmt.Fprintf(&b,
		"📋 *Проверьте правильность заказа*\n\n"+
			"👤 *Инструктор:* %s\n"+
			"📅 *Период:* %s\n"+
			"📊 *Итого:* %d дней, %d обедов\n\n"+
			"*Детализация по дням:*\n",
		s.Instructor, s.Week.Range(), s.DaysCount, s.Total)

	for i, day := range s.Formats.Days {
		qty := s.Meals[s.Week.Keys[i]]
		if qty > 0 {
			fmt.Fprintf(&b, "✅ *%s* (%s): %d обед(ов)\n", day.DayName, day.Short, qty)
		} else {
			fmt.Fprintf(&b, "❌ *%s* (%s): 0\n", day.DayName, day.Short)
		}
	}

	b.WriteString("\n⚠️ *Проверьте внимательно!*\n")
	b.WriteString("После подтверждения заказ будет сохранён.")
	return b.String()
}

func committedText(instructor, weekRange string, daysCount, total int) string {
	return fmt.Sprintf(
		"✅ *Заказ успешно подтверждён!*\n\n"+
			"👤 *Инструктор:* %s\n"+
			"📅 *Период:* %s\n"+
			"📊 *Всего:* %d дней, %d обедов\n\n"+
			"✨ Спасибо! Заказ передан на кухню.",
		instructor, weekRange, daysCount, total)
}

func restartText(s *session.OrderSession) string {
	day := s.Formats.Days[0]
	return fmt.Sprintf(
		"🔄 *Начинаем заново*\n\n"+
			"👤 *Инструктор:* %s\n"+
			"📅 *Период:* %s\n\n"+
			"📅 *День 1: %s* (%s)\n\n"+
			"🍽️ Сколько обедов? (0, 1, 2):",
		s.Instructor, s.Week.Range(), day.DayName, day.Display)
}

const cancelledText = "❌ *Заказ отменён*\n\n" +
	"Если передумаете, начните новый заказ."

const expiredText = "⌛ *Сессия устарела*\n\n" +
	"Этот заказ уже обработан или отменён. Начните новый заказ."

const commitFailedText = "⚠️ *Не удалось сохранить заказ*\n\n" +
	"Попробуйте подтвердить ещё раз через пару секунд.\n" +
	"Введённые данные не потеряны."

const noOrdersText = "📭 *У вас пока нет заказов*\n\n" +
	"Нажмите «" + ButtonNewOrder + "» чтобы сделать первый заказ."

const accessDeniedText = "⛔ *Доступ запрещён*\n\nЭта команда только для администратора."

const mainMenuText = "👇 *Главное меню:*"

const unknownInputText = "🤔 Не понимаю. Нажмите «" + ButtonNewOrder +
	"» чтобы начать заказ, или «" + ButtonMyOrders + "» чтобы посмотреть текущие."

// myOrdersText groups the user's lines by instructor, shows at most the
// 7 most recent dates per instructor and sums everything up.
func myOrdersText(orders []models.UserOrder, formats func(dateKey string) string) string {
	byInstructor := make(map[string][]models.UserOrder)
	for _, o := range orders {
		byInstructor[o.InstructorName] = append(byInstructor[o.InstructorName], o)
	}
	instructors := make([]string, 0, len(byInstructor))
	for name := range byInstructor {
		instructors = append(instructors, name)
	}
	sort.Strings(instructors)

	var b strings.Builder
	b.WriteString("📋 *Ваши текущие заказы*\n\n")

	totalAll := 0
	for _, instructor := range instructors {
		fmt.Fprintf(&b, "👤 *%s*\n", instructor)
		items := byInstructor[instructor]
		// GetUserOrders already sorts date-descending.
		if len(items) > 7 {
			items = items[:7]
		}
		instructorTotal := 0
		for _, item := range items {
			fmt.Fprintf(&b, "  • %s: %d обед(ов)\n", formats(item.DateKey), item.Quantity)
			instructorTotal += item.Quantity
			totalAll += item.Quantity
		}
		fmt.Fprintf(&b, "  ✨ Итого по инструктору: %d обедов\n\n", instructorTotal)
	}

	fmt.Fprintf(&b, "📊 *Всего заказов:* %d обедов", totalAll)
	return b.String()
}
