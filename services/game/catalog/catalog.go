// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package catalog serves the static puzzle-module manuals.
//
// The catalog is read-only from the core's perspective: it is seeded
// once at startup and shared without synchronization. Manual text is in
// French, matching the client-facing copy.
package catalog

import "github.com/jinterlante1206/DefuseLocal/services/game/datatypes"

// Catalog is an in-process collection of module manuals.
type Catalog struct {
	modules []datatypes.ModuleManual
}

// New returns a catalog holding the given manuals, in order.
func New(modules []datatypes.ModuleManual) *Catalog {
	return &Catalog{modules: modules}
}

// Default returns the catalog seeded with the built-in module set.
func Default() *Catalog {
	return New(seedModules())
}

// All returns every manual in catalog order.
func (c *Catalog) All() []datatypes.ModuleManual {
	out := make([]datatypes.ModuleManual, len(c.modules))
	copy(out, c.modules)
	return out
}

// FindSome returns up to n manuals in catalog order. The selection is
// deterministic so repeated game starts see the same module sample.
func (c *Catalog) FindSome(n int) []datatypes.ModuleManual {
	if n < 0 {
		n = 0
	}
	if n > len(c.modules) {
		n = len(c.modules)
	}
	out := make([]datatypes.ModuleManual, n)
	copy(out, c.modules[:n])
	return out
}

func seedModules() []datatypes.ModuleManual {
	return []datatypes.ModuleManual{
		{
			Name: "Simon Says",
			Description: "Reproduire des séquences lumineuses et sonores qui " +
				"s'allongent à chaque étape.",
			Rules: "Observer la séquence complète, répéter sans erreur; la " +
				"vitesse augmente à chaque étape.",
			ImgURL: "/manuals/module-simon.pdf",
			Solutions: []string{
				"Initialisation : appuyer sur un bouton pour lancer la première séquence.",
				"Traduction par numéro de série (début/fin) pour choisir le bouton à presser.",
				"Règle 1 : chiffre au début, lettre à la fin → Bleu→Jaune, Jaune→Rouge, Vert→Bleu, Rouge→Vert.",
				"Règle 2 : chiffre au début, chiffre à la fin → Rouge→Jaune, Jaune→Bleu, Bleu→Vert, Vert→Rouge.",
				"Règle 3 : lettre au début, lettre à la fin → Rouge↔Bleu, Jaune↔Vert.",
				"Règle 4 : lettre au début, chiffre à la fin → identité (couleur inchangée).",
				"Progression : rejouer toute la séquence à chaque étape avec les traductions appliquées.",
				"Erreur : strike et séquence potentiellement réinitialisée; vitesse peut augmenter.",
				"Victoire : séquence finale reproduite sans erreur → module désactivé (GG).",
			},
		},
		{
			Name: "Wires",
			Description: "Couper les bons fils selon une table de correspondance " +
				"couleur/symbole.",
			Rules: "Analyser la couleur, vérifier la position, couper les fils " +
				"dans l'ordre prescrit par la table.",
			Solutions: []string{
				"Identifier le schéma de couleurs et positions.",
				"Suivre la table couleur/position pour déterminer l'ordre de coupe.",
				"Couper uniquement dans l'ordre validé; une erreur déclenche un strike.",
			},
		},
		{
			Name: "Memory Code",
			Description: "Retenir un code à 4 chiffres affiché brièvement et le " +
				"reproduire après délai.",
			Rules: "Mémoriser le code, attendre le signal, entrer la séquence " +
				"sans erreur.",
			Solutions: []string{
				"Mémoriser le code à 4 chiffres dès l'affichage.",
				"Attendre le signal de saisie avant d'entrer le code.",
				"Saisir le code complet sans erreur pour valider.",
			},
		},
		{
			Name: "Keypad",
			Description: "Appuyer sur les symboles dans l'ordre indiqué par le " +
				"manuel de référence.",
			Rules: "Identifier les symboles, comparer à la table de référence, " +
				"valider la séquence dans l'ordre indiqué.",
			Solutions: []string{
				"Identifier chaque symbole affiché.",
				"Comparer la colonne de référence dans le manuel.",
				"Appuyer dans l'ordre exact défini par la colonne choisie.",
			},
		},
		{
			Name: "Morse Relay",
			Description: "Traduire un signal Morse court en mot-clé pour " +
				"déverrouiller le module.",
			Rules: "Compter les points/traits du Morse, identifier les lettres, " +
				"envoyer le mot-clé final.",
			Solutions: []string{
				"Écouter/observer le Morse et segmenter points/traits.",
				"Traduire chaque lettre via l'alphabet Morse.",
				"Composer le mot-clé et l'envoyer pour valider.",
			},
		},
	}
}
