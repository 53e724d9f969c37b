package repository

import (
	"fmt"
	"strings"
)

// ValidateRoleGraph verifica que el grafo de herencia sea acíclico.
// Se usa en dos momentos: antes de persistir una edición de rol
// (validate-then-commit) y lo reutiliza la evaluación como cota del
// recorrido transitivo.
//
// Retorna un error que envuelve ErrCyclicRole nombrando el ciclo, o nil.
// Herencias hacia roles inexistentes no son ciclo: se ignoran aquí y
// se saltan durante la evaluación.
func ValidateRoleGraph(roles map[string]Role) error {
	const (
		white = 0 // sin visitar
		gray  = 1 // en el stack actual
		black = 2 // terminado
	)
	color := make(map[string]int, len(roles))
	var stack []string

	var visit func(name string) error
	visit = func(name string) error {
		role, ok := roles[name]
		if !ok {
			return nil
		}
		switch color[name] {
		case gray:
			// Ciclo: recortar el stack hasta la primera aparición de name.
			i := 0
			for j, n := range stack {
				if n == name {
					i = j
					break
				}
			}
			cycle := append(append([]string{}, stack[i:]...), name)
			return fmt.Errorf("%w: %s", ErrCyclicRole, strings.Join(cycle, " -> "))
		case black:
			return nil
		}
		color[name] = gray
		stack = append(stack, name)
		for _, parent := range role.Inherits {
			if err := visit(parent); err != nil {
				return err
			}
		}
		stack = stack[:len(stack)-1]
		color[name] = black
		return nil
	}

	for name := range roles {
		if err := visit(name); err != nil {
			return err
		}
	}
	return nil
}

// Closure retorna el conjunto de roles alcanzables desde start
// (incluido start) vía herencia, con recorrido acotado por visited.
// Roles inexistentes en el catálogo se omiten.
func Closure(roles map[string]Role, start string) []string {
	visited := make(map[string]bool)
	var order []string

	var walk func(name string)
	walk = func(name string) {
		if visited[name] {
			return
		}
		role, ok := roles[name]
		if !ok {
			return
		}
		visited[name] = true
		order = append(order, name)
		for _, parent := range role.Inherits {
			walk(parent)
		}
	}
	walk(start)
	return order
}
