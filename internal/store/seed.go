package store

import (
	"time"

	"gracecal/internal/model"
)

// SeedEvents is the fixed 2026 calendar written on first run when the
// persisted snapshot is empty. This is organizational fixture data, not
// derived logic; edit the entries here when the annual plan changes.
func SeedEvents() []*model.Event {
	return []*model.Event{
		seedEvent(1, "8ª Technovation Summer School for Girls",
			d(2026, 1, 10), d(2026, 5, 21),
			"Curso e escola. Parceiros: TechGirls (Isadora e Dani).",
			seedTask(1, "Planejar divulgação de abertura", model.AreaMarketing, d(2025, 12, 27)),
			seedTask(2, "Definir monitoras e cronograma", model.AreaEnsino, d(2026, 1, 3)),
		),
		seedEvent(2, "Workshop Mulheres na IA",
			d(2026, 2, 27), d(2026, 2, 27),
			"Evento de extensão. Parceiros: Meninas Digitais Sudeste.",
			seedTask(1, "Produzir posts para redes sociais", model.AreaMarketing, d(2026, 2, 13)),
			seedTask(2, "Organizar presença da equipe", model.AreaDiretoria, d(2026, 2, 20)),
		),
		seedEvent(3, "Pint of Science 2026",
			d(2026, 5, 18), d(2026, 5, 20),
			"Evento de extensão. Parceiros: CCEx - ICMC.",
			seedTask(1, "Mapear empresas parceiras", model.AreaFinanceiro, d(2026, 5, 4)),
			seedTask(2, "Escalar voluntárias", model.AreaRH, d(2026, 5, 8)),
		),
		seedEvent(4, "WebMedia 4 Everyone",
			d(2026, 11, 9), d(2026, 11, 13),
			"Participação em eventos acadêmicos. Parceiros: comunidade acadêmica.",
			seedTask(1, "Fechar submissão do artigo", model.AreaEnsino, d(2026, 7, 3)),
			seedTask(2, "Reservar orçamento para deslocamento", model.AreaFinanceiro, d(2026, 9, 15)),
		),
	}
}

func seedEvent(index int, title string, start, end model.Date, description string, tasks ...*model.Task) *model.Event {
	return &model.Event{
		Index:       index,
		Title:       title,
		StartDate:   start,
		EndDate:     end,
		Description: description,
		Tasks:       tasks,
		Reminded:    model.MarkerSet{},
	}
}

// Seed tasks start unassigned; responsibles are added by the team once
// the bot is live, so the diretoria placeholder keeps the non-empty
// responsibles invariant.
func seedTask(index int, title string, area model.Area, deadline model.Date) *model.Task {
	return &model.Task{
		Index:        index,
		Title:        title,
		Area:         area,
		Deadline:     deadline,
		Responsibles: []string{"diretoria"},
		Progress:     0,
		State:        model.StatePending,
		Reminded:     model.MarkerSet{},
	}
}

func d(year int, month time.Month, day int) model.Date {
	return model.Date{Year: year, Month: month, Day: day}
}
